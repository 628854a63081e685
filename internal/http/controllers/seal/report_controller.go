package seal

import (
	"net/http"

	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	httperrors "github.com/dropDatabas3/trueseal/internal/http/errors"
	"github.com/dropDatabas3/trueseal/internal/http/middlewares"
	svc "github.com/dropDatabas3/trueseal/internal/http/services/seal"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
)

// ReportController maneja POST /v1/report.
type ReportController struct {
	service svc.ReportService
}

// NewReportController crea un nuevo controller de denuncias.
func NewReportController(service svc.ReportService) *ReportController {
	return &ReportController{service: service}
}

// Report procesa una denuncia manual de counterfeit.
// POST /v1/report
func (c *ReportController) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ReportController.Report"))

	var req dto.ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Report(ctx, req, middlewares.GetActor(ctx))
	if err != nil {
		log.Error("report failed", logger.Err(err))
		httperrors.WriteError(w, mapServiceError(err))
		return
	}

	// 202: la denuncia queda registrada; la investigación es asincrónica.
	writeJSON(w, http.StatusAccepted, resp)
	log.Debug("report accepted", logger.ID(resp.ReportID))
}
