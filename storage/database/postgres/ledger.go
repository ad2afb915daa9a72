package pgrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/ledger"
)

type ledgerRepository struct {
	db *sqlx.DB
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *sqlx.DB) *ledgerRepository {
	return &ledgerRepository{db: db}
}

func (repo ledgerRepository) QueryStudentPayments(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]ledger.FeePayment, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, student_id, installment_id, amount, paid_at, created_at
		FROM fee_payment WHERE student_id = $1 ORDER BY created_at`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student payments")
	}
	return collectPayments(rows)
}

func (repo ledgerRepository) QueryInstallmentPayments(ctx context.Context, studentID, installmentID string, exec ...core.DBExecutor) ([]ledger.FeePayment, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, student_id, installment_id, amount, paid_at, created_at
		FROM fee_payment WHERE student_id = $1 AND installment_id = $2
		ORDER BY created_at`, studentID, installmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying installment payments")
	}
	return collectPayments(rows)
}

func (repo ledgerRepository) QueryStudentRecords(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]ledger.FeeRecord, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, student_id, amount, status, note, paid_at, created_at
		FROM fee_record WHERE student_id = $1 ORDER BY created_at`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student records")
	}
	defer func() { _ = rows.Close() }()

	var records []ledger.FeeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning record")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (repo ledgerRepository) CreatePayment(ctx context.Context, p ledger.FeePayment, exec ...core.DBExecutor) (ledger.FeePayment, error) {
	p.ID = uuid.New().String()
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO fee_payment (id, student_id, installment_id, amount, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.StudentID, p.InstallmentID, p.Amount, p.PaidAt, p.CreatedAt,
	)
	if err != nil {
		return ledger.FeePayment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

// CreateAllocation appends every row inside one transaction; rows are never
// visible partially. A caller-provided executor is used as-is so the caller
// keeps control of its own transaction.
func (repo ledgerRepository) CreateAllocation(ctx context.Context, payments []ledger.FeePayment, surplus *ledger.FeeRecord, exec ...core.DBExecutor) (ledger.Allocation, error) {
	if len(exec) > 0 {
		return repo.createAllocation(ctx, exec[0], payments, surplus)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Allocation{}, errors.Wrap(err, "beginning transaction")
	}
	alloc, err := repo.createAllocation(ctx, tx, payments, surplus)
	if err != nil {
		_ = tx.Rollback()
		return ledger.Allocation{}, err
	}
	if err = tx.Commit(); err != nil {
		return ledger.Allocation{}, errors.Wrap(err, "committing allocation")
	}
	return alloc, nil
}

func (repo ledgerRepository) createAllocation(ctx context.Context, exe core.DBExecutor, payments []ledger.FeePayment, surplus *ledger.FeeRecord) (ledger.Allocation, error) {
	var alloc ledger.Allocation
	for _, p := range payments {
		p.ID = uuid.New().String()
		_, err := exe.ExecContext(ctx, `
			INSERT INTO fee_payment (id, student_id, installment_id, amount, paid_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.StudentID, p.InstallmentID, p.Amount, p.PaidAt, p.CreatedAt,
		)
		if err != nil {
			return ledger.Allocation{}, errors.Wrap(err, "inserting allocated payment")
		}
		alloc.Payments = append(alloc.Payments, p)
	}
	if surplus != nil {
		rec := *surplus
		rec.ID = uuid.New().String()
		_, err := exe.ExecContext(ctx, `
			INSERT INTO fee_record (id, student_id, amount, status, note, paid_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, rec.StudentID, rec.Amount, string(rec.Status),
			null.NewString(rec.Note, rec.Note != ""), rec.PaidAt, rec.CreatedAt,
		)
		if err != nil {
			return ledger.Allocation{}, errors.Wrap(err, "inserting surplus record")
		}
		alloc.Surplus = &rec
	}
	return alloc, nil
}

func scanRecord(row rowScanner) (ledger.FeeRecord, error) {
	var rec ledger.FeeRecord
	var status string
	var note null.String
	var paidAt, createdAt null.Time
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.Amount, &status, &note, &paidAt, &createdAt); err != nil {
		return ledger.FeeRecord{}, err
	}
	rec.Status = ledger.RecordStatus(status)
	rec.Note = note.String
	rec.PaidAt = paidAt.Time
	rec.CreatedAt = createdAt.Time
	return rec, nil
}

func collectPayments(rows *sql.Rows) ([]ledger.FeePayment, error) {
	defer func() { _ = rows.Close() }()

	var payments []ledger.FeePayment
	for rows.Next() {
		var p ledger.FeePayment
		var paidAt, createdAt null.Time
		if err := rows.Scan(&p.ID, &p.StudentID, &p.InstallmentID, &p.Amount, &paidAt, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scanning payment")
		}
		p.PaidAt = paidAt.Time
		p.CreatedAt = createdAt.Time
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
