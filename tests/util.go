package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/volatiletech/randomize"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/ledger"
	"github.com/trezcool/shiksha/core/staff"
	"github.com/trezcool/shiksha/core/student"
)

var seed = randomize.NewSeed()

// RandomStr returns a random string of length ln for throwaway test values.
func RandomStr(ln int) string { return randomize.Str(seed.NextInt, ln) }

// NewConfig returns a config suitable for tests.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:              "Shiksha",
		Env:                  "TEST",
		TestMode:             true,
		SecretKey:            "test-secret-key",
		DefaultFromEmailAddr: "noreply@test.cd",
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
}

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Enable(bool)                      {}
func (NopLogger) Debug(string, ...interface{})     {}
func (NopLogger) Info(string, ...interface{})      {}
func (NopLogger) Warn(string, ...interface{})      {}
func (NopLogger) Error(string, ...interface{})     {}
func (NopLogger) Fatal(msg string, _ ...interface{}) {}

// EmailServiceMock records messages instead of sending them.
type EmailServiceMock struct {
	mu   sync.Mutex
	Sent []core.EmailMessage
}

var _ core.EmailService = (*EmailServiceMock)(nil)

func (svc *EmailServiceMock) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, msg := range messages {
		svc.Sent = append(svc.Sent, *msg)
	}
}

func (svc *EmailServiceMock) SentCount() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.Sent)
}

func CreateBatch(
	t *testing.T,
	repo student.Repository,
	name, subject string,
	feeAmount float64,
	createdAt ...time.Time,
) student.Batch {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	batch, err := repo.CreateBatch(context.Background(), student.Batch{
		Name:      name,
		Subject:   subject,
		FeeAmount: feeAmount,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}
	return batch
}

func CreateInstallment(
	t *testing.T,
	repo student.Repository,
	batchID, name string,
	amount float64,
	createdAt ...time.Time,
) student.FeeInstallment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	inst, err := repo.CreateInstallment(context.Background(), student.FeeInstallment{
		BatchID:   batchID,
		Name:      name,
		Amount:    amount,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateInstallment() failed: %v", err)
	}
	return inst
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	batchID, humanID, name, parentContact string,
	createdAt ...time.Time,
) student.Student {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	stu, err := repo.CreateStudent(context.Background(), student.Student{
		BatchID:       batchID,
		HumanID:       humanID,
		Name:          name,
		ParentContact: parentContact,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

func CreatePayment(
	t *testing.T,
	repo ledger.Repository,
	studentID, installmentID string,
	amount float64,
	createdAt ...time.Time,
) ledger.FeePayment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p, err := repo.CreatePayment(context.Background(), ledger.FeePayment{
		StudentID:     studentID,
		InstallmentID: installmentID,
		Amount:        amount,
		PaidAt:        tstamp,
		CreatedAt:     tstamp,
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}

func CreateStaff(
	t *testing.T,
	repo staff.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) staff.Staff {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	stf := staff.Staff{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	stf.SetActive(isActive)
	if pwd != "" {
		if err := stf.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
	}
	stf, err := repo.CreateStaff(context.Background(), stf)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return stf
}
