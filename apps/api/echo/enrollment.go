package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aprende/academia/core/enrollment"
)

type enrollmentApi struct {
	svc      *enrollment.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, svc *enrollment.Service, validate *validator.Validate) {
	api := enrollmentApi{svc: svc, validate: validate}

	g.POST("/enrollments", api.create)
	g.GET("/enrollments/:id", api.retrieve)
	g.GET("/students/:id/enrollments", api.queryByStudent)
}

// Handlers

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	rcpt, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, Envelope{Message: "Enrollment completed successfully.", Data: rcpt})
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	rcpt, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, Envelope{Data: rcpt})
}

func (api *enrollmentApi) queryByStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	rcpts, err := api.svc.QueryByStudent(ctx.Request().Context(), id, ordering.Orderings...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, Envelope{Data: rcpts})
}

type Envelope struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}
