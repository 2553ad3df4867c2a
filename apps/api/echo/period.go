package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edusync/edusync/core/period"
)

type periodApi struct {
	svc      *period.Service
	validate *validator.Validate
}

func registerPeriodAPI(g *echo.Group, svc *period.Service, validate *validator.Validate) {
	api := periodApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/periods")
	pg.POST("", api.create)
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
}

func (api *periodApi) create(ctx echo.Context) error {
	var data period.NewPeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	per, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating period")
	}
	return ctx.JSON(http.StatusCreated, per)
}

func (api *periodApi) query(ctx echo.Context) error {
	filter := new(period.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []period.GradingPeriod{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	periods, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying periods")
	}
	if periods == nil {
		periods = []period.GradingPeriod{}
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *periodApi) retrieve(ctx echo.Context) error {
	per, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, per)
}
