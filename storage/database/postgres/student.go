package pgrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CreateBatch(ctx context.Context, batch student.Batch, exec ...core.DBExecutor) (student.Batch, error) {
	batch.ID = uuid.New().String()
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO batch (id, name, subject, start_date, fee_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		batch.ID, batch.Name, null.NewString(batch.Subject, batch.Subject != ""),
		null.NewTime(batch.StartDate, !batch.StartDate.IsZero()), batch.FeeAmount, batch.CreatedAt,
	)
	if err != nil {
		return student.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return batch, nil
}

func (repo studentRepository) GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (student.Batch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Batch{}, student.ErrBatchNotFound
	}
	row := getExec(repo.db, exec).QueryRowContext(ctx, `
		SELECT id, name, subject, start_date, fee_amount, created_at
		FROM batch WHERE id = $1`, id)
	batch, err := scanBatch(row)
	if err != nil {
		return student.Batch{}, trapNoRowsErr(err, student.ErrBatchNotFound, "finding batch by ID")
	}
	return batch, nil
}

func (repo studentRepository) QueryBatches(ctx context.Context, exec ...core.DBExecutor) ([]student.Batch, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, name, subject, start_date, fee_amount, created_at
		FROM batch ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	defer func() { _ = rows.Close() }()

	var batches []student.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning batch")
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

func (repo studentRepository) CreateInstallment(ctx context.Context, inst student.FeeInstallment, exec ...core.DBExecutor) (student.FeeInstallment, error) {
	inst.ID = uuid.New().String()
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO fee_installment (id, batch_id, name, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		inst.ID, inst.BatchID, inst.Name, inst.Amount, inst.CreatedAt,
	)
	if err != nil {
		return student.FeeInstallment{}, errors.Wrap(err, "inserting installment")
	}
	return inst, nil
}

func (repo studentRepository) GetInstallment(ctx context.Context, id string, exec ...core.DBExecutor) (student.FeeInstallment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.FeeInstallment{}, student.ErrNotFound
	}
	var inst student.FeeInstallment
	var createdAt null.Time
	err := getExec(repo.db, exec).QueryRowContext(ctx, `
		SELECT id, batch_id, name, amount, created_at
		FROM fee_installment WHERE id = $1`, id,
	).Scan(&inst.ID, &inst.BatchID, &inst.Name, &inst.Amount, &createdAt)
	if err != nil {
		return student.FeeInstallment{}, trapNoRowsErr(err, student.ErrNotFound, "finding installment by ID")
	}
	inst.CreatedAt = createdAt.Time
	return inst, nil
}

func (repo studentRepository) QueryInstallments(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]student.FeeInstallment, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, batch_id, name, amount, created_at
		FROM fee_installment WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, errors.Wrap(err, "querying installments")
	}
	defer func() { _ = rows.Close() }()

	var insts []student.FeeInstallment
	for rows.Next() {
		var inst student.FeeInstallment
		var createdAt null.Time
		if err = rows.Scan(&inst.ID, &inst.BatchID, &inst.Name, &inst.Amount, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scanning installment")
		}
		inst.CreatedAt = createdAt.Time
		insts = append(insts, inst)
	}
	return insts, rows.Err()
}

// NextHumanIDSeq increments the counter for `prefix` in a single atomic
// statement, initializing it at 1. Counter increments are pushed down to the
// database on purpose: a read-then-write here would race under concurrent
// registrations.
func (repo studentRepository) NextHumanIDSeq(ctx context.Context, prefix string, exec ...core.DBExecutor) (int, error) {
	var seq int
	err := getExec(repo.db, exec).QueryRowContext(ctx, `
		INSERT INTO id_counter (prefix, seq) VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET seq = id_counter.seq + 1
		RETURNING seq`, prefix,
	).Scan(&seq)
	if err != nil {
		return 0, errors.Wrap(err, "incrementing ID counter")
	}
	return seq, nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	stu.ID = uuid.New().String()
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO student (id, batch_id, human_id, name, parent_name, parent_contact, parent_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		stu.ID, null.NewString(stu.BatchID, stu.BatchID != ""), null.NewString(stu.HumanID, stu.HumanID != ""),
		stu.Name, null.NewString(stu.ParentName, stu.ParentName != ""),
		null.NewString(stu.ParentContact, stu.ParentContact != ""),
		null.NewString(stu.ParentEmail, stu.ParentEmail != ""),
		stu.CreatedAt, stu.UpdatedAt,
	)
	if err != nil {
		switch violatedConstraint(err) {
		case "student_human_id_uniq":
			return student.Student{}, student.ErrHumanIDTaken
		case "student_natural_key_uniq":
			return student.Student{}, student.ErrStudentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return stu, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	exe := getExec(repo.db, exec)
	q := `SELECT id, batch_id, human_id, name, parent_name, parent_contact, parent_email, created_at, updated_at FROM student `

	var row rowScanner
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return student.Student{}, student.ErrNotFound
		}
		row = exe.QueryRowContext(ctx, q+`WHERE id = $1`, filter.ID)
	case filter.HumanID != "":
		row = exe.QueryRowContext(ctx, q+`WHERE human_id = $1`, filter.HumanID)
	default:
		row = exe.QueryRowContext(
			ctx, q+`WHERE batch_id = $1 AND name = $2 AND parent_contact = $3`,
			filter.BatchID, filter.Name, filter.ParentContact)
	}

	stu, err := scanStudent(row)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return stu, nil
}

func (repo studentRepository) QueryBatchStudents(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]student.Student, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, batch_id, human_id, name, parent_name, parent_contact, parent_email, created_at, updated_at
		FROM student WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, errors.Wrap(err, "querying batch students")
	}
	return collectStudents(rows)
}

func (repo studentRepository) SetStudentHumanID(ctx context.Context, studentID, humanID string, exec ...core.DBExecutor) (student.Student, error) {
	exe := getExec(repo.db, exec)
	_, err := exe.ExecContext(ctx, `
		UPDATE student SET human_id = $2, updated_at = now()
		WHERE id = $1 AND human_id IS NULL`, studentID, humanID)
	if err != nil {
		if violatedConstraint(err) == "student_human_id_uniq" {
			return student.Student{}, student.ErrHumanIDTaken
		}
		return student.Student{}, errors.Wrap(err, "assigning student ID")
	}
	return repo.GetStudent(ctx, student.GetFilter{ID: studentID}, exec...)
}

func (repo studentRepository) QueryStudentsMissingHumanID(ctx context.Context, exec ...core.DBExecutor) ([]student.Student, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, batch_id, human_id, name, parent_name, parent_contact, parent_email, created_at, updated_at
		FROM student WHERE human_id IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying students missing an ID")
	}
	return collectStudents(rows)
}

// scan helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row rowScanner) (student.Batch, error) {
	var batch student.Batch
	var subject null.String
	var startDate, createdAt null.Time
	if err := row.Scan(&batch.ID, &batch.Name, &subject, &startDate, &batch.FeeAmount, &createdAt); err != nil {
		return student.Batch{}, err
	}
	batch.Subject = subject.String
	batch.StartDate = startDate.Time
	batch.CreatedAt = createdAt.Time
	return batch, nil
}

func scanStudent(row rowScanner) (student.Student, error) {
	var stu student.Student
	var batchID, humanID, parentName, parentContact, parentEmail null.String
	var createdAt, updatedAt null.Time
	err := row.Scan(&stu.ID, &batchID, &humanID, &stu.Name, &parentName, &parentContact, &parentEmail, &createdAt, &updatedAt)
	if err != nil {
		return student.Student{}, err
	}
	stu.BatchID = batchID.String
	stu.HumanID = humanID.String
	stu.ParentName = parentName.String
	stu.ParentContact = parentContact.String
	stu.ParentEmail = parentEmail.String
	stu.CreatedAt = createdAt.Time
	stu.UpdatedAt = updatedAt.Time
	return stu, nil
}

func collectStudents(rows *sql.Rows) ([]student.Student, error) {
	defer func() { _ = rows.Close() }()

	var students []student.Student
	for rows.Next() {
		stu, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning student")
		}
		students = append(students, stu)
	}
	return students, rows.Err()
}
