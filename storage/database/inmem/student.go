package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateBatch(ctx context.Context, batch student.Batch, exec ...core.DBExecutor) (student.Batch, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	batch.ID = uuid.New().String()
	repo.db.batches = append(repo.db.batches, batch)
	return batch, nil
}

func (repo *studentRepository) GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (student.Batch, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, batch := range repo.db.batches {
		if batch.ID == id {
			return batch, nil
		}
	}
	return student.Batch{}, student.ErrBatchNotFound
}

func (repo *studentRepository) QueryBatches(ctx context.Context, exec ...core.DBExecutor) ([]student.Batch, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	return append([]student.Batch(nil), repo.db.batches...), nil
}

func (repo *studentRepository) CreateInstallment(ctx context.Context, inst student.FeeInstallment, exec ...core.DBExecutor) (student.FeeInstallment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inst.ID = uuid.New().String()
	repo.db.installments = append(repo.db.installments, inst)
	return inst, nil
}

func (repo *studentRepository) GetInstallment(ctx context.Context, id string, exec ...core.DBExecutor) (student.FeeInstallment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, inst := range repo.db.installments {
		if inst.ID == id {
			return inst, nil
		}
	}
	return student.FeeInstallment{}, student.ErrNotFound
}

func (repo *studentRepository) QueryInstallments(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]student.FeeInstallment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var insts []student.FeeInstallment
	for _, inst := range repo.db.installments {
		if inst.BatchID == batchID {
			insts = append(insts, inst)
		}
	}
	return insts, nil
}

func (repo *studentRepository) NextHumanIDSeq(ctx context.Context, prefix string, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.counters[prefix]++
	return repo.db.counters[prefix], nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.students {
		if stu.HumanID != "" && other.HumanID == stu.HumanID {
			return student.Student{}, student.ErrHumanIDTaken
		}
		if other.BatchID == stu.BatchID && other.Name == stu.Name && other.ParentContact == stu.ParentContact {
			return student.Student{}, student.ErrStudentExists
		}
	}
	stu.ID = uuid.New().String()
	repo.db.students = append(repo.db.students, stu)
	return stu, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, stu := range repo.db.students {
		switch {
		case filter.ID != "":
			if stu.ID == filter.ID {
				return stu, nil
			}
		case filter.HumanID != "":
			if stu.HumanID == filter.HumanID {
				return stu, nil
			}
		default:
			if stu.BatchID == filter.BatchID && stu.Name == filter.Name && stu.ParentContact == filter.ParentContact {
				return stu, nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryBatchStudents(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var students []student.Student
	for _, stu := range repo.db.students {
		if stu.BatchID == batchID {
			students = append(students, stu)
		}
	}
	return students, nil
}

func (repo *studentRepository) SetStudentHumanID(ctx context.Context, studentID, humanID string, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.students {
		if other.ID != studentID && other.HumanID == humanID {
			return student.Student{}, student.ErrHumanIDTaken
		}
	}
	for i, stu := range repo.db.students {
		if stu.ID == studentID {
			if stu.HumanID == "" {
				repo.db.students[i].HumanID = humanID
				repo.db.students[i].UpdatedAt = student.NowFunc().UTC()
			}
			return repo.db.students[i], nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudentsMissingHumanID(ctx context.Context, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var students []student.Student
	for _, stu := range repo.db.students {
		if stu.HumanID == "" {
			students = append(students, stu)
		}
	}
	return students, nil
}
