package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/staff"
)

var errNoPermsToSetRoles = "not enough rights to set these roles"

type staffApi struct {
	svc  staff.Service
	conf *core.Config
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc staff.Service, conf *core.Config) {
	api := staffApi{svc: svc, conf: conf}

	sg := g.Group("/staff")

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	sg.POST("/login", api.login)
	sg.POST("/password-reset", api.resetPassword)
	sg.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := sg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
	ag.GET("/roles", api.queryRoles, adminMiddleware())
}

// Handlers

func (api *staffApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Username, data.Password, api.svc, api.conf)
	if err != nil {
		if errors.Cause(err) == staff.ErrNotFound {
			return core.NewValidationError(errors.New("invalid credentials"))
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims, api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *staffApi) create(ctx echo.Context) error {
	var data staff.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	// ctxStaff cannot set a role > their own max role
	ctxStf, err := getContextStaff(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context staff")
	}
	if staff.MaxRolePriority(data.Roles) > staff.MaxRolePriority(ctxStf.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	stf, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating staff")
	}

	return ctx.JSON(http.StatusCreated, stf)
}

func (api *staffApi) query(ctx echo.Context) error {
	all, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	if all == nil {
		all = []staff.Staff{}
	}
	return ctx.JSON(http.StatusOK, all)
}

func (api *staffApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == staff.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *staffApi) confirmPasswordReset(ctx echo.Context) error {
	var data staff.ResetStaffPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetStaffPassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *staffApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, staff.Roles)
}

func (api *staffApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate() error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return core.Validate.Struct(pr)
}
