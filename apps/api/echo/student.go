package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shiksha/core/student"
)

type studentApi struct {
	svc student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc student.Service) {
	api := studentApi{svc: svc}

	// batches
	bg := g.Group("/batches", jwt)
	bg.POST("", api.createBatch, adminMiddleware())
	bg.GET("", api.queryBatches, deskMiddleware())
	bg.GET("/:id", api.retrieveBatch, deskMiddleware())
	bg.POST("/:id/installments", api.addInstallment, adminMiddleware())
	bg.GET("/:id/installments", api.queryInstallments, deskMiddleware())
	bg.GET("/:id/students", api.queryBatchStudents, deskMiddleware())

	// students
	sg := g.Group("/students", jwt)
	sg.POST("", api.register, deskMiddleware())
	sg.GET("/missing-ids", api.queryMissingIDs, adminMiddleware())
	sg.POST("/:id/assign-id", api.assignID, adminMiddleware())
	sg.GET("/:id", api.retrieve, deskMiddleware())
}

// Handlers

func (api *studentApi) createBatch(ctx echo.Context) error {
	var data student.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	batch, err := api.svc.CreateBatch(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return ctx.JSON(http.StatusCreated, batch)
}

func (api *studentApi) queryBatches(ctx echo.Context) error {
	batches, err := api.svc.QueryBatches(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	if batches == nil {
		batches = []student.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *studentApi) retrieveBatch(ctx echo.Context) error {
	batch, err := api.svc.GetBatch(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, batch)
}

func (api *studentApi) addInstallment(ctx echo.Context) error {
	var data student.NewFeeInstallment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeeInstallment")
	}
	data.BatchID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	inst, err := api.svc.AddInstallment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *studentApi) queryInstallments(ctx echo.Context) error {
	insts, err := api.svc.Installments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if insts == nil {
		insts = []student.FeeInstallment{}
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *studentApi) queryBatchStudents(ctx echo.Context) error {
	students, err := api.svc.QueryBatchStudents(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

// register creates a student and allocates their ID. A resubmission of the
// same student returns the existing row with 200 instead of 201.
func (api *studentApi) register(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	stu, created, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	if created {
		return ctx.JSON(http.StatusCreated, stu)
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	stu, err := api.svc.Get(ctx.Request().Context(), student.GetFilter{ID: ctx.Param("id")})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) queryMissingIDs(ctx echo.Context) error {
	students, err := api.svc.MissingHumanID(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students missing an ID")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) assignID(ctx echo.Context) error {
	stu, err := api.svc.AssignHumanID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stu)
}
