package student

import (
	"time"

	"github.com/trezcool/shiksha/core"
)

type (
	// Batch is a group of students taught together; it owns the fee schedule.
	// Subject and StartDate drive the human ID prefix and are immutable for
	// the lifetime of the batch.
	Batch struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Subject   string    `json:"subject"`
		StartDate time.Time `json:"start_date"` // academic year start; zero when unknown
		FeeAmount float64   `json:"fee_amount"` // flat fee; fallback when no installments exist
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// FeeInstallment is a scheduled part of a batch's total fee.
	// CreatedAt defines the allocation order: oldest first.
	FeeInstallment struct {
		ID        string    `json:"id"`
		BatchID   string    `json:"batch_id"`
		Name      string    `json:"name"`
		Amount    float64   `json:"amount"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Student struct {
		ID            string    `json:"id"`
		BatchID       string    `json:"batch_id"`
		HumanID       string    `json:"human_id"` // empty until assigned; permanent once set
		Name          string    `json:"name"`
		ParentName    string    `json:"parent_name"`
		ParentContact string    `json:"parent_contact"`
		ParentEmail   string    `json:"parent_email"`
		CreatedAt     time.Time `json:"created_at"` // UTC
		UpdatedAt     time.Time `json:"updated_at"` // UTC
	}
)

// NewBatch contains information needed to create a new Batch.
type NewBatch struct {
	Name      string    `json:"name" validate:"required"`
	Subject   string    `json:"subject" validate:"omitempty,alphanum_"`
	StartDate time.Time `json:"start_date"`
	FeeAmount float64   `json:"fee_amount" validate:"omitempty,gt=0"`
}

func (nb *NewBatch) Validate() error {
	nb.Name = core.CleanString(nb.Name)
	nb.Subject = core.CleanString(nb.Subject)
	return core.Validate.Struct(nb)
}

// NewFeeInstallment contains information needed to add an installment to a Batch.
type NewFeeInstallment struct {
	BatchID string  `json:"batch_id" validate:"required"`
	Name    string  `json:"name" validate:"required"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
}

func (ni *NewFeeInstallment) Validate() error {
	ni.Name = core.CleanString(ni.Name)
	return core.Validate.Struct(ni)
}

// NewStudent contains information needed to register a new Student.
// (BatchID, Name, ParentContact) is the natural key: a re-submission with the
// same tuple resolves to the already-registered row.
type NewStudent struct {
	BatchID       string `json:"batch_id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	ParentName    string `json:"parent_name"`
	ParentContact string `json:"parent_contact" validate:"required"`
	ParentEmail   string `json:"parent_email" validate:"omitempty,email"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentContact = core.CleanString(ns.ParentContact)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	return core.Validate.Struct(ns)
}

// GetFilter selects a single Student. Exactly one selector should be set;
// they are tried in field order.
type GetFilter struct {
	ID      string
	HumanID string

	// natural key
	BatchID       string
	Name          string
	ParentContact string
}

func (f GetFilter) ByNaturalKey() bool { return f.ID == "" && f.HumanID == "" }
