package seal

import (
	"net/http"

	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	httperrors "github.com/dropDatabas3/trueseal/internal/http/errors"
	"github.com/dropDatabas3/trueseal/internal/http/middlewares"
	svc "github.com/dropDatabas3/trueseal/internal/http/services/seal"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
)

// BatchController maneja POST /v1/admin/batch.
type BatchController struct {
	service svc.BatchService
}

// NewBatchController crea un nuevo controller de emisión.
func NewBatchController(service svc.BatchService) *BatchController {
	return &BatchController{service: service}
}

// Issue emite un batch de tokens. Requiere X-Admin-API-Key (middleware).
// POST /v1/admin/batch
func (c *BatchController) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("BatchController.Issue"))

	var req dto.BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Issue(ctx, req, middlewares.GetActor(ctx))
	if err != nil {
		log.Error("batch issuance failed", logger.BatchRef(req.BatchNumber), logger.Err(err))
		httperrors.WriteError(w, mapServiceError(err))
		return
	}

	writeJSON(w, http.StatusCreated, resp)
	log.Info("batch issued", logger.BatchRef(resp.BatchRef), logger.Count(resp.Count))
}
