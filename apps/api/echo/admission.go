package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/admission"
	"github.com/pobon98/school-management/services/metrics"
)

// the website form depends on these exact bodies
const (
	errMissingFields = "Missing required fields"
	errSaveInquiry   = "Failed to save inquiry"
)

type admissionApi struct {
	svc      *admission.Service
	logger   core.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func registerAdmissionAPI(g *echo.Group, deps ServerDeps) {
	api := admissionApi{
		svc:      deps.AdmissionSvc,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		validate: deps.Validate,
	}
	g.POST("/admission-inquiry", api.submit)
}

func (api *admissionApi) submit(ctx echo.Context) error {
	var data admission.NewInquiry
	if err := ctx.Bind(&data); err != nil {
		api.metrics.ObserveInquiry("invalid")
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": errMissingFields})
	}
	if err := data.Validate(api.validate); err != nil {
		api.metrics.ObserveInquiry("invalid")
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": errMissingFields})
	}

	if _, err := api.svc.Submit(ctx.Request().Context(), data); err != nil {
		api.metrics.ObserveInquiry("failed")
		api.logger.Error(errSaveInquiry, errors.Wrap(err, "submitting inquiry"))
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"error": errSaveInquiry})
	}
	api.metrics.ObserveInquiry("ok")
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}
