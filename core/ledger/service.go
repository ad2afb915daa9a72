package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/student"
)

var (
	// errors
	ErrInstallmentNotFound = errors.New("installment not found")
	// ErrAlreadySettled rejects a targeted payment against an installment
	// with no remaining balance.
	ErrAlreadySettled = errors.New("installment is already settled")
	// ErrOverpayment rejects any payment that would push a student's total
	// paid beyond their total fee.
	ErrOverpayment = errors.New("amount exceeds the outstanding balance")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		QueryStudentPayments(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]FeePayment, error)
		// QueryInstallmentPayments returns every payment a student made
		// against one installment, oldest first.
		QueryInstallmentPayments(ctx context.Context, studentID, installmentID string, exec ...core.DBExecutor) ([]FeePayment, error)
		QueryStudentRecords(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]FeeRecord, error)
		CreatePayment(ctx context.Context, p FeePayment, exec ...core.DBExecutor) (FeePayment, error)
		// CreateAllocation appends a generic payment's rows as one
		// all-or-nothing unit of work: either every FeePayment and the
		// surplus FeeRecord land, or none do.
		CreateAllocation(ctx context.Context, payments []FeePayment, surplus *FeeRecord, exec ...core.DBExecutor) (Allocation, error)
	}

	Service interface {
		// StudentBalance derives the student's current Balance from their
		// full payment history.
		StudentBalance(ctx context.Context, studentID string) (Balance, error)
		// RecordInstallmentPayment records a payment against one specific
		// installment. Returns ErrAlreadySettled or ErrOverpayment without
		// writing anything when validation fails.
		RecordInstallmentPayment(ctx context.Context, ip InstallmentPayment) (FeePayment, error)
		// RecordPayment records a generic payment, allocating it across the
		// installment schedule oldest-first; any residue beyond the schedule
		// is kept as a PAID surplus record.
		RecordPayment(ctx context.Context, p Payment) (Allocation, error)
		// Statement returns the student's full append-only payment history.
		Statement(ctx context.Context, studentID string) ([]FeePayment, []FeeRecord, error)
	}

	service struct {
		repo     Repository
		students student.Repository
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	students student.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// history is a snapshot of everything a balance derives from.
type history struct {
	stu          student.Student
	batch        student.Batch
	installments []student.FeeInstallment
	payments     []FeePayment
	records      []FeeRecord
}

func (svc *service) loadHistory(ctx context.Context, studentID string) (history, error) {
	var h history
	var err error

	if h.stu, err = svc.students.GetStudent(ctx, student.GetFilter{ID: studentID}); err != nil {
		return h, err
	}
	if h.stu.BatchID != "" {
		if h.batch, err = svc.students.GetBatch(ctx, h.stu.BatchID); err != nil {
			if err != student.ErrBatchNotFound {
				return h, err
			}
			h.batch = student.Batch{} // degenerate: student without a batch
		}
		if h.installments, err = svc.students.QueryInstallments(ctx, h.stu.BatchID); err != nil {
			return h, err
		}
	}
	if h.payments, err = svc.repo.QueryStudentPayments(ctx, studentID); err != nil {
		return h, err
	}
	if h.records, err = svc.repo.QueryStudentRecords(ctx, studentID); err != nil {
		return h, err
	}

	sort.SliceStable(h.installments, func(i, j int) bool {
		return h.installments[i].CreatedAt.Before(h.installments[j].CreatedAt)
	})
	return h, nil
}

func (h history) balance() Balance {
	return Compute(h.batch, h.stu, h.installments, h.payments, h.records)
}

func (svc *service) StudentBalance(ctx context.Context, studentID string) (Balance, error) {
	h, err := svc.loadHistory(ctx, studentID)
	if err != nil {
		return Balance{}, err
	}
	return h.balance(), nil
}

func (svc *service) RecordInstallmentPayment(ctx context.Context, ip InstallmentPayment) (FeePayment, error) {
	stu, err := svc.students.GetStudent(ctx, student.GetFilter{ID: ip.StudentID})
	if err != nil {
		return FeePayment{}, err
	}
	inst, err := svc.students.GetInstallment(ctx, ip.InstallmentID)
	if err != nil {
		return FeePayment{}, err
	}
	if inst.BatchID != stu.BatchID {
		return FeePayment{}, ErrInstallmentNotFound
	}

	// cumulative sum over every prior row; a single partial payment must not
	// shadow the ones before it
	prior, err := svc.repo.QueryInstallmentPayments(ctx, stu.ID, inst.ID)
	if err != nil {
		return FeePayment{}, err
	}
	remaining := remainingOn(inst, prior)
	if remaining <= Epsilon {
		return FeePayment{}, ErrAlreadySettled
	}
	if ip.Amount > remaining+Epsilon {
		return FeePayment{}, ErrOverpayment
	}

	now := NowFunc().UTC()
	paidAt := ip.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	payment, err := svc.repo.CreatePayment(ctx, FeePayment{
		StudentID:     stu.ID,
		InstallmentID: inst.ID,
		Amount:        ip.Amount,
		PaidAt:        paidAt.UTC(),
		CreatedAt:     now,
	})
	if err != nil {
		return FeePayment{}, err
	}

	svc.logger.Info(fmt.Sprintf(
		"installment payment recorded: id=%s student=%s installment=%s amount=%.2f",
		payment.ID, payment.StudentID, payment.InstallmentID, payment.Amount))
	svc.sendReceiptMail(stu, payment.Amount)
	return payment, nil
}

func (svc *service) RecordPayment(ctx context.Context, p Payment) (Allocation, error) {
	h, err := svc.loadHistory(ctx, p.StudentID)
	if err != nil {
		return Allocation{}, err
	}

	// re-validate against the current balance before every write; a stale
	// read elsewhere cannot make this path overdraw
	bal := h.balance()
	if p.Amount > bal.Balance+Epsilon {
		return Allocation{}, ErrOverpayment
	}

	now := NowFunc().UTC()
	paidAt := p.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	paidAt = paidAt.UTC()

	var payments []FeePayment
	left := p.Amount
	for _, inst := range h.installments {
		if left <= Epsilon {
			break
		}
		remaining := remainingOn(inst, h.payments)
		if remaining <= Epsilon {
			continue
		}
		amount := remaining
		if left < amount {
			amount = left
		}
		payments = append(payments, FeePayment{
			StudentID:     h.stu.ID,
			InstallmentID: inst.ID,
			Amount:        amount,
			PaidAt:        paidAt,
			CreatedAt:     now,
		})
		left -= amount
	}

	var surplus *FeeRecord
	if left > Epsilon {
		surplus = &FeeRecord{
			StudentID: h.stu.ID,
			Amount:    left,
			Status:    StatusPaid,
			Note:      p.Note,
			PaidAt:    paidAt,
			CreatedAt: now,
		}
	}

	alloc, err := svc.repo.CreateAllocation(ctx, payments, surplus)
	if err != nil {
		return Allocation{}, err
	}

	svc.logger.Info(fmt.Sprintf(
		"payment recorded: student=%s amount=%.2f installments=%d surplus=%t",
		h.stu.ID, p.Amount, len(alloc.Payments), alloc.Surplus != nil))
	svc.sendReceiptMail(h.stu, p.Amount)
	return alloc, nil
}

func (svc *service) Statement(ctx context.Context, studentID string) ([]FeePayment, []FeeRecord, error) {
	if _, err := svc.students.GetStudent(ctx, student.GetFilter{ID: studentID}); err != nil {
		return nil, nil, err
	}
	payments, err := svc.repo.QueryStudentPayments(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	records, err := svc.repo.QueryStudentRecords(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	return payments, records, nil
}

func (svc *service) sendReceiptMail(stu student.Student, amount float64) {
	if stu.ParentEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stu.ParentName, Address: stu.ParentEmail}},
		Subject:      "Payment received",
		TemplateName: "receipt",
		TemplateData: struct {
			Name    string
			HumanID string
			Amount  float64
		}{stu.Name, stu.HumanID, amount},
	})
}
