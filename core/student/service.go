package student

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/shiksha/core"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrBatchNotFound = errors.New("batch not found")
	ErrStudentExists = errors.New("a student with this name and parent contact is already registered in this batch")
	ErrHumanIDTaken  = errors.New("student ID already taken")
	// ErrAllocationExhausted is fatal for the request: the allocation loop
	// kept drawing sequence values that were already taken.
	ErrAllocationExhausted = errors.New("could not allocate a unique student ID")

	NowFunc = time.Now // mockable
)

// maxAllocationAttempts bounds the ID allocation retry loop so no
// registration request can spin indefinitely.
const maxAllocationAttempts = 15

type (
	Repository interface {
		CreateBatch(ctx context.Context, batch Batch, exec ...core.DBExecutor) (Batch, error)
		GetBatch(ctx context.Context, id string, exec ...core.DBExecutor) (Batch, error)
		QueryBatches(ctx context.Context, exec ...core.DBExecutor) ([]Batch, error)
		CreateInstallment(ctx context.Context, inst FeeInstallment, exec ...core.DBExecutor) (FeeInstallment, error)
		GetInstallment(ctx context.Context, id string, exec ...core.DBExecutor) (FeeInstallment, error)
		// QueryInstallments returns a batch's installments ordered oldest first.
		QueryInstallments(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]FeeInstallment, error)

		// NextHumanIDSeq atomically increments and returns the sequence
		// counter for a human ID prefix, initializing it at 1. This must be a
		// single storage statement; it is the engine's only critical section.
		NextHumanIDSeq(ctx context.Context, prefix string, exec ...core.DBExecutor) (int, error)

		// CreateStudent inserts a new row. It returns ErrHumanIDTaken when the
		// human ID is already in use and ErrStudentExists when the natural key
		// (BatchID, Name, ParentContact) already exists.
		CreateStudent(ctx context.Context, stu Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		QueryBatchStudents(ctx context.Context, batchID string, exec ...core.DBExecutor) ([]Student, error)
		// SetStudentHumanID assigns a human ID to a row that has none.
		// It returns ErrHumanIDTaken when the ID is already in use.
		SetStudentHumanID(ctx context.Context, studentID, humanID string, exec ...core.DBExecutor) (Student, error)
		QueryStudentsMissingHumanID(ctx context.Context, exec ...core.DBExecutor) ([]Student, error)
	}

	Service interface {
		CreateBatch(ctx context.Context, nb NewBatch) (Batch, error)
		GetBatch(ctx context.Context, id string) (Batch, error)
		QueryBatches(ctx context.Context) ([]Batch, error)
		AddInstallment(ctx context.Context, ni NewFeeInstallment) (FeeInstallment, error)
		Installments(ctx context.Context, batchID string) ([]FeeInstallment, error)

		// Register registers a student, allocating a human ID. It is
		// idempotent on the natural key: a duplicate submission returns the
		// existing row with created=false and does not touch the counter.
		Register(ctx context.Context, ns NewStudent) (stu Student, created bool, err error)
		// AllocateHumanID draws the next ID for a batch's prefix.
		AllocateHumanID(ctx context.Context, batch Batch) (string, error)
		// AssignHumanID gives the student a human ID if they have none yet.
		// Safe to call from any trigger point; a no-op for students already
		// holding an ID.
		AssignHumanID(ctx context.Context, studentID string) (Student, error)
		Get(ctx context.Context, filter GetFilter) (Student, error)
		QueryBatchStudents(ctx context.Context, batchID string) ([]Student, error)
		MissingHumanID(ctx context.Context) ([]Student, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

func (svc *service) CreateBatch(ctx context.Context, nb NewBatch) (Batch, error) {
	batch := Batch{
		Name:      nb.Name,
		Subject:   nb.Subject,
		StartDate: nb.StartDate,
		FeeAmount: nb.FeeAmount,
		CreatedAt: NowFunc().UTC(),
	}
	return svc.repo.CreateBatch(ctx, batch)
}

func (svc *service) GetBatch(ctx context.Context, id string) (Batch, error) {
	return svc.repo.GetBatch(ctx, id)
}

func (svc *service) QueryBatches(ctx context.Context) ([]Batch, error) {
	return svc.repo.QueryBatches(ctx)
}

func (svc *service) AddInstallment(ctx context.Context, ni NewFeeInstallment) (FeeInstallment, error) {
	if _, err := svc.repo.GetBatch(ctx, ni.BatchID); err != nil {
		return FeeInstallment{}, err
	}
	inst := FeeInstallment{
		BatchID:   ni.BatchID,
		Name:      ni.Name,
		Amount:    ni.Amount,
		CreatedAt: NowFunc().UTC(),
	}
	return svc.repo.CreateInstallment(ctx, inst)
}

func (svc *service) Installments(ctx context.Context, batchID string) ([]FeeInstallment, error) {
	return svc.repo.QueryInstallments(ctx, batchID)
}

func (svc *service) AllocateHumanID(ctx context.Context, batch Batch) (string, error) {
	prefix := counterPrefix(batch, NowFunc().UTC())
	seq, err := svc.repo.NextHumanIDSeq(ctx, prefix)
	if err != nil {
		return "", err
	}
	return formatHumanID(prefix, seq), nil
}

func (svc *service) Register(ctx context.Context, ns NewStudent) (Student, bool, error) {
	batch, err := svc.repo.GetBatch(ctx, ns.BatchID)
	if err != nil {
		return Student{}, false, err
	}

	// duplicate submission short-circuit; the insert below re-checks the
	// natural key for submissions racing each other past this read.
	existing, err := svc.repo.GetStudent(ctx, GetFilter{
		BatchID:       ns.BatchID,
		Name:          ns.Name,
		ParentContact: ns.ParentContact,
	})
	if err == nil {
		return existing, false, nil
	}
	if err != ErrNotFound {
		return Student{}, false, err
	}

	now := NowFunc().UTC()
	stu := Student{
		BatchID:       ns.BatchID,
		Name:          ns.Name,
		ParentName:    ns.ParentName,
		ParentContact: ns.ParentContact,
		ParentEmail:   ns.ParentEmail,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		humanID, err := svc.AllocateHumanID(ctx, batch)
		if err != nil {
			return Student{}, false, err
		}
		stu.HumanID = humanID

		created, err := svc.repo.CreateStudent(ctx, stu)
		switch err {
		case nil:
			svc.logger.Info(fmt.Sprintf(
				"student registered: id=%s humanId=%s batch=%s attempt=%d", created.ID, created.HumanID, created.BatchID, attempt))
			svc.sendWelcomeMail(created, batch)
			return created, true, nil
		case ErrHumanIDTaken:
			// a concurrent insert consumed this ID outside the counter
			// (pre-migration rows, manual edits); burn the value and redraw
			continue
		case ErrStudentExists:
			// a concurrent duplicate of the same registration won the insert
			existing, err := svc.repo.GetStudent(ctx, GetFilter{
				BatchID:       ns.BatchID,
				Name:          ns.Name,
				ParentContact: ns.ParentContact,
			})
			return existing, false, err
		default:
			return Student{}, false, err
		}
	}
	return Student{}, false, ErrAllocationExhausted
}

func (svc *service) AssignHumanID(ctx context.Context, studentID string) (Student, error) {
	stu, err := svc.repo.GetStudent(ctx, GetFilter{ID: studentID})
	if err != nil {
		return Student{}, err
	}
	if stu.HumanID != "" { // already assigned; never reassign
		return stu, nil
	}

	var batch Batch // zero batch allocates under the generic prefix
	if stu.BatchID != "" {
		if batch, err = svc.repo.GetBatch(ctx, stu.BatchID); err != nil && err != ErrBatchNotFound {
			return Student{}, err
		}
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		humanID, err := svc.AllocateHumanID(ctx, batch)
		if err != nil {
			return Student{}, err
		}
		assigned, err := svc.repo.SetStudentHumanID(ctx, stu.ID, humanID)
		switch err {
		case nil:
			svc.logger.Info(fmt.Sprintf("student ID assigned: id=%s humanId=%s attempt=%d", assigned.ID, assigned.HumanID, attempt))
			return assigned, nil
		case ErrHumanIDTaken:
			continue
		default:
			return Student{}, err
		}
	}
	return Student{}, ErrAllocationExhausted
}

func (svc *service) Get(ctx context.Context, filter GetFilter) (Student, error) {
	return svc.repo.GetStudent(ctx, filter)
}

func (svc *service) QueryBatchStudents(ctx context.Context, batchID string) ([]Student, error) {
	return svc.repo.QueryBatchStudents(ctx, batchID)
}

func (svc *service) MissingHumanID(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudentsMissingHumanID(ctx)
}

func (svc *service) sendWelcomeMail(stu Student, batch Batch) {
	if stu.ParentEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stu.ParentName, Address: stu.ParentEmail}},
		Subject:      "Welcome to " + svc.conf.AppName,
		TemplateName: "welcome",
		TemplateData: struct {
			Name    string
			HumanID string
			Batch   string
		}{stu.Name, stu.HumanID, batch.Name},
	})
}
