package staff

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
	ErrNotFound       = errors.New("staff account not found")
	ErrEmailExists    = errors.New("an account with this email already exists")
	ErrUsernameExists = errors.New("an account with this username already exists")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when
		// another account (excluded ones aside) holds the username or email.
		CheckUniqueness(ctx context.Context, username, email string, excluded []Staff, exec ...core.DBExecutor) error
		CreateStaff(ctx context.Context, stf Staff, exec ...core.DBExecutor) (Staff, error)
		QueryAllStaff(ctx context.Context, exec ...core.DBExecutor) ([]Staff, error)
		GetStaff(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Staff, error)
		UpdateStaff(ctx context.Context, stf Staff, exec ...core.DBExecutor) (Staff, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewStaff) (Staff, error)
		QueryAll(ctx context.Context) ([]Staff, error)
		GetByID(ctx context.Context, id string) (Staff, error)
		GetByEmail(ctx context.Context, email string) (Staff, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (Staff, error)
		SetLastLogin(ctx context.Context, stf Staff) (Staff, error)
		CheckUniqueness(uname, email string, excluded ...Staff) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetStaffPassword) error
	}

	service struct {
		ctx     context.Context // background ops
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		ctx:     context.Background(),
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(uname, email string, excluded ...Staff) error {
	if err := svc.repo.CheckUniqueness(svc.ctx, uname, email, excluded); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	now := NowFunc().UTC()
	stf := Staff{
		Name:      ns.Name,
		Username:  ns.Username,
		Email:     ns.Email,
		Roles:     ns.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stf.SetActive(true)
	if err := stf.SetPassword(ns.Password); err != nil {
		return Staff{}, err
	}
	return svc.repo.CreateStaff(ctx, stf)
}

func (svc *service) QueryAll(ctx context.Context) ([]Staff, error) {
	return svc.repo.QueryAllStaff(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Staff, error) {
	return svc.repo.GetStaff(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Staff, error) {
	return svc.repo.GetStaff(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (Staff, error) {
	return svc.repo.GetStaff(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) SetLastLogin(ctx context.Context, stf Staff) (Staff, error) {
	stf.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateStaff(ctx, stf)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	stf, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(stf)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetStaffPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	stf, err := svc.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = svc.verifyToken(stf, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = stf.SetPassword(rp.Password); err != nil {
		return err
	}
	stf.UpdatedAt = NowFunc().UTC()
	if _, err = svc.repo.UpdateStaff(ctx, stf); err != nil {
		return err
	}
	return nil
}

func (svc *service) sendPasswordResetMail(stf Staff) {
	token, err := svc.MakeToken(stf)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stf.Name, Address: stf.Email}},
		Subject:      fmt.Sprintf("Password reset on %s", svc.conf.AppName),
		TemplateName: "password-reset",
		TemplateData: struct {
			UID   string
			Token string
		}{EncodeUID(stf), token},
	})
}
