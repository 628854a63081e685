package seal

import (
	"net/http"

	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	httperrors "github.com/dropDatabas3/trueseal/internal/http/errors"
	"github.com/dropDatabas3/trueseal/internal/http/middlewares"
	svc "github.com/dropDatabas3/trueseal/internal/http/services/seal"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
)

// ValidateController maneja POST /v1/validate.
type ValidateController struct {
	service svc.ValidateService
}

// NewValidateController crea un nuevo controller de validación.
func NewValidateController(service svc.ValidateService) *ValidateController {
	return &ValidateController{service: service}
}

// Validate procesa un scan de producto.
// POST /v1/validate
func (c *ValidateController) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ValidateController.Validate"))

	var req dto.ValidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Validate(ctx, req, middlewares.GetActor(ctx))
	if err != nil {
		log.Error("validate failed", logger.Err(err))
		httperrors.WriteError(w, mapServiceError(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
	log.Debug("validate completed", logger.Outcome(resp.Outcome))
}
