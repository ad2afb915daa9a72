package ledger

import (
	"time"

	"github.com/trezcool/shiksha/core"
)

// RecordStatus is the lifecycle status of a generic FeeRecord.
// Only StatusPaid records count toward a student's balance.
type RecordStatus string

const (
	StatusPaid      RecordStatus = "PAID"
	StatusPending   RecordStatus = "PENDING"
	StatusCancelled RecordStatus = "CANCELLED"
)

type (
	// FeePayment is an immutable ledger entry: an amount paid by a student
	// against one specific installment. Partial payments append new rows;
	// entries are never merged, edited or deleted.
	FeePayment struct {
		ID            string    `json:"id"`
		StudentID     string    `json:"student_id"`
		InstallmentID string    `json:"installment_id"`
		Amount        float64   `json:"amount"`
		PaidAt        time.Time `json:"paid_at"`    // UTC
		CreatedAt     time.Time `json:"created_at"` // UTC
	}

	// FeeRecord is an immutable generic payment entry not tied to any
	// installment: historic flat-fee payments and surplus cash beyond the
	// known schedule.
	FeeRecord struct {
		ID        string       `json:"id"`
		StudentID string       `json:"student_id"`
		Amount    float64      `json:"amount"`
		Status    RecordStatus `json:"status"`
		Note      string       `json:"note"`
		PaidAt    time.Time    `json:"paid_at"`    // UTC
		CreatedAt time.Time    `json:"created_at"` // UTC
	}

	// InstallmentDue is one line of a balance breakdown: an installment not
	// yet fully covered and the amount still due on it.
	InstallmentDue struct {
		InstallmentID string  `json:"installment_id"`
		Name          string  `json:"name"`
		Due           float64 `json:"due"`
	}

	// Balance is a student's financial position derived from their full
	// payment history.
	Balance struct {
		TotalFee  float64          `json:"total_fee"`
		TotalPaid float64          `json:"total_paid"`
		Balance   float64          `json:"balance"` // signed; use Outstanding for display
		Breakdown []InstallmentDue `json:"breakdown"`
		OldestDue *time.Time       `json:"oldest_due,omitempty"`
	}
)

// Outstanding is the user-facing balance: never negative; an overpaid or
// exactly settled account reads as 0.
func (b Balance) Outstanding() float64 {
	if b.Balance < 0 {
		return 0
	}
	return b.Balance
}

// Settled reports whether nothing is due within the money tolerance.
func (b Balance) Settled() bool { return b.Balance <= Epsilon }

// InstallmentPayment contains information needed to record a payment
// targeted at a specific installment.
type InstallmentPayment struct {
	StudentID     string    `json:"student_id" validate:"required"`
	InstallmentID string    `json:"installment_id" validate:"required"`
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	PaidAt        time.Time `json:"paid_at"`
}

func (ip *InstallmentPayment) Validate() error { return core.Validate.Struct(ip) }

// Payment contains information needed to record a generic (ad-hoc) payment;
// the engine allocates it across the installment schedule oldest-first.
type Payment struct {
	StudentID string    `json:"student_id" validate:"required"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
	Note      string    `json:"note"`
	PaidAt    time.Time `json:"paid_at"`
}

func (p *Payment) Validate() error {
	p.Note = core.CleanString(p.Note)
	return core.Validate.Struct(p)
}

// Allocation is the outcome of recording a generic payment: the FeePayment
// rows created against installments plus the surplus FeeRecord, if any.
type Allocation struct {
	Payments []FeePayment `json:"payments"`
	Surplus  *FeeRecord   `json:"surplus,omitempty"`
}

// Total is the sum of all amounts the allocation wrote; it always equals the
// recorded payment's amount.
func (a Allocation) Total() float64 {
	var sum float64
	for _, p := range a.Payments {
		sum += p.Amount
	}
	if a.Surplus != nil {
		sum += a.Surplus.Amount
	}
	return sum
}
