package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shiksha/core/ledger"
)

type ledgerApi struct {
	svc ledger.Service
}

func registerLedgerAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc ledger.Service) {
	api := ledgerApi{svc: svc}

	sg := g.Group("/students/:id", jwt)
	sg.GET("/balance", api.balance, deskMiddleware())
	sg.GET("/statement", api.statement, deskMiddleware())
	sg.POST("/payments", api.recordPayment, deskMiddleware())
	sg.POST("/installment-payments", api.recordInstallmentPayment, deskMiddleware())
}

// Handlers

func (api *ledgerApi) balance(ctx echo.Context) error {
	bal, err := api.svc.StudentBalance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, bal)
}

func (api *ledgerApi) statement(ctx echo.Context) error {
	payments, records, err := api.svc.Statement(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if payments == nil {
		payments = []ledger.FeePayment{}
	}
	if records == nil {
		records = []ledger.FeeRecord{}
	}
	return ctx.JSON(http.StatusOK, StatementResponse{Payments: payments, Records: records})
}

func (api *ledgerApi) recordPayment(ctx echo.Context) error {
	var data ledger.Payment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Payment")
	}
	data.StudentID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	alloc, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, alloc)
}

func (api *ledgerApi) recordInstallmentPayment(ctx echo.Context) error {
	var data ledger.InstallmentPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InstallmentPayment")
	}
	data.StudentID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	payment, err := api.svc.RecordInstallmentPayment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, payment)
}

type StatementResponse struct {
	Payments []ledger.FeePayment `json:"payments"`
	Records  []ledger.FeeRecord  `json:"records"`
}
