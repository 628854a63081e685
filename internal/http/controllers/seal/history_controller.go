package seal

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/trueseal/internal/http/errors"
	svc "github.com/dropDatabas3/trueseal/internal/http/services/seal"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
)

// HistoryController maneja GET /v1/history/{tokenRef}.
type HistoryController struct {
	service svc.HistoryService
}

// NewHistoryController crea un nuevo controller de historial.
func NewHistoryController(service svc.HistoryService) *HistoryController {
	return &HistoryController{service: service}
}

// History devuelve el historial paginado de un token.
// GET /v1/history/{tokenRef}?after_seq=N&limit=N
func (c *HistoryController) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HistoryController.History"))

	tokenRef := chi.URLParam(r, "tokenRef")

	var (
		afterSeq int64
		limit    int
	)
	q := r.URL.Query()
	if v := q.Get("after_seq"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("after_seq"))
			return
		}
		afterSeq = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("limit"))
			return
		}
		limit = n
	}

	resp, err := c.service.History(ctx, tokenRef, afterSeq, limit)
	if err != nil {
		log.Debug("history read failed", logger.TokenID(tokenRef), logger.Err(err))
		httperrors.WriteError(w, mapServiceError(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
