package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edusync/edusync/core/report"
)

type reportApi struct {
	svc      *report.Service
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, svc *report.Service, validate *validator.Validate) {
	api := reportApi{
		svc:      svc,
		validate: validate,
	}

	rg := g.Group("/reports")
	rg.POST("", api.create)
	rg.GET("", api.query)
	rg.GET("/stats", api.stats)
	rg.GET("/subject-averages", api.subjectAverages)
	rg.POST("/batch", api.generateBatch)

	// detail endpoints
	dg := rg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.saveManual)
	dg.DELETE("", api.destroy)
	dg.POST("/calculate", api.calculate)
	dg.POST("/validate", api.validateReport)
	dg.POST("/publish", api.publish)
	dg.POST("/archive", api.archive)
	dg.POST("/reset", api.resetToDraft)
}

// Handlers

func (api *reportApi) create(ctx echo.Context) error {
	var data report.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rep, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating report")
	}
	return ctx.JSON(http.StatusCreated, rep)
}

func (api *reportApi) query(ctx echo.Context) error {
	filter := new(report.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []report.Report{})
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reports, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reports == nil {
		reports = []report.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	rep, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) saveManual(ctx echo.Context) error {
	var data report.ManualSave
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ManualSave")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rep, err := api.svc.SaveManual(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reportApi) calculate(ctx echo.Context) error {
	var opts report.CalculateOptions
	if err := ctx.Bind(&opts); err != nil {
		return errors.Wrap(err, "binding to CalculateOptions")
	}

	rep, err := api.svc.Calculate(ctx.Request().Context(), ctx.Param("id"), opts)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) validateReport(ctx echo.Context) error {
	var data actorRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to actorRequest")
	}

	rep, err := api.svc.Validate(ctx.Request().Context(), ctx.Param("id"), data.Actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) publish(ctx echo.Context) error {
	var data actorRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to actorRequest")
	}

	rep, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"), data.Actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) archive(ctx echo.Context) error {
	rep, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) resetToDraft(ctx echo.Context) error {
	rep, err := api.svc.ResetToDraft(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) generateBatch(ctx echo.Context) error {
	var opts report.BatchOptions
	if err := ctx.Bind(&opts); err != nil {
		return errors.Wrap(err, "binding to BatchOptions")
	}
	if err := opts.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.GenerateBatch(ctx.Request().Context(), opts)
	if err != nil {
		if errors.Cause(err) == report.ErrPartialBatchFailure {
			return ctx.JSON(http.StatusMultiStatus, res)
		}
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *reportApi) stats(ctx echo.Context) error {
	var filter report.StatsFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StatsFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	stats, err := api.svc.Statistics(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) subjectAverages(ctx echo.Context) error {
	var filter report.StatsFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StatsFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	averages, err := api.svc.SubjectAverages(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing subject averages")
	}
	if averages == nil {
		averages = []report.SubjectStats{}
	}
	return ctx.JSON(http.StatusOK, averages)
}

type actorRequest struct {
	Actor string `json:"actor"`
}
