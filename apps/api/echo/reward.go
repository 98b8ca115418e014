package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aprende/academia/core/reward"
)

type rewardApi struct {
	svc      *reward.Service
	validate *validator.Validate
}

func registerRewardAPI(g *echo.Group, svc *reward.Service, validate *validator.Validate) {
	api := rewardApi{svc: svc, validate: validate}

	g.GET("/rewards", api.queryActive)
	g.POST("/rewards/:id/redeem", api.redeem)
	g.GET("/students/:id/discounts", api.queryDiscounts)
}

// Handlers

func (api *rewardApi) queryActive(ctx echo.Context) error {
	rwds, err := api.svc.ListActive(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, Envelope{Data: rwds})
}

func (api *rewardApi) redeem(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data reward.RedeemRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RedeemRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	red, err := api.svc.Redeem(ctx.Request().Context(), id, data.StudentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, Envelope{Message: "Reward redeemed successfully.", Data: red})
}

func (api *rewardApi) queryDiscounts(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	reds, err := api.svc.AvailableDiscounts(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, Envelope{Data: reds})
}
