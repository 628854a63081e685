// Package seal contiene los controllers HTTP de la API de tokens.
// Los controllers solo parsean/serializan y mapean errores sentinela del
// service a errores HTTP; toda la lógica vive en services y en el engine.
package seal

import (
	"encoding/json"
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/trueseal/internal/http/errors"
	svc "github.com/dropDatabas3/trueseal/internal/http/services/seal"
)

// Controllers agrupa los controllers del dominio.
type Controllers struct {
	Validate *ValidateController
	Report   *ReportController
	Batch    *BatchController
	History  *HistoryController
}

// NewControllers crea el aggregator del dominio con los services inyectados.
func NewControllers(s *svc.Services) *Controllers {
	return &Controllers{
		Validate: NewValidateController(s.Validate),
		Report:   NewReportController(s.Report),
		Batch:    NewBatchController(s.Batch),
		History:  NewHistoryController(s.History),
	}
}

// ─── Helpers ───

const maxBodyBytes = 1 << 20 // 1 MiB

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON.WithDetail(err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mapServiceError traduce los errores sentinela del service a AppErrors.
func mapServiceError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		return httperrors.ErrMissingFields
	case errors.Is(err, svc.ErrInvalidParam):
		return httperrors.ErrInvalidParameter.WithDetail(err.Error())
	case errors.Is(err, svc.ErrNotFound):
		return httperrors.ErrNotFound
	case errors.Is(err, svc.ErrConflict):
		return httperrors.ErrConflict
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
