package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/ledger"
)

type ledgerRepository struct {
	db *DB
}

var _ ledger.Repository = (*ledgerRepository)(nil)

func NewLedgerRepository(db *DB) *ledgerRepository {
	return &ledgerRepository{db: db}
}

func (repo *ledgerRepository) QueryStudentPayments(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]ledger.FeePayment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var payments []ledger.FeePayment
	for _, p := range repo.db.payments {
		if p.StudentID == studentID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (repo *ledgerRepository) QueryInstallmentPayments(ctx context.Context, studentID, installmentID string, exec ...core.DBExecutor) ([]ledger.FeePayment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var payments []ledger.FeePayment
	for _, p := range repo.db.payments {
		if p.StudentID == studentID && p.InstallmentID == installmentID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (repo *ledgerRepository) QueryStudentRecords(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]ledger.FeeRecord, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var records []ledger.FeeRecord
	for _, rec := range repo.db.records {
		if rec.StudentID == studentID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (repo *ledgerRepository) CreatePayment(ctx context.Context, p ledger.FeePayment, exec ...core.DBExecutor) (ledger.FeePayment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = uuid.New().String()
	repo.db.payments = append(repo.db.payments, p)
	return p, nil
}

// CreateAllocation appends everything under one lock acquisition; a reader can
// never observe a half-applied allocation.
func (repo *ledgerRepository) CreateAllocation(ctx context.Context, payments []ledger.FeePayment, surplus *ledger.FeeRecord, exec ...core.DBExecutor) (ledger.Allocation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var alloc ledger.Allocation
	for _, p := range payments {
		p.ID = uuid.New().String()
		repo.db.payments = append(repo.db.payments, p)
		alloc.Payments = append(alloc.Payments, p)
	}
	if surplus != nil {
		rec := *surplus
		rec.ID = uuid.New().String()
		repo.db.records = append(repo.db.records, rec)
		alloc.Surplus = &rec
	}
	return alloc, nil
}
