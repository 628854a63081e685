// Package seal contiene los services de la API de tokens de autenticidad.
// Los services traducen DTOs a llamadas del engine/issuer/store y devuelven
// errores sentinela que los controllers mapean a HTTP.
package seal

import (
	"context"
	"fmt"

	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	"github.com/dropDatabas3/trueseal/internal/engine"
	"github.com/dropDatabas3/trueseal/internal/issuer"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

// Errores sentinela compartidos por los services del paquete.
var (
	ErrMissingFields = fmt.Errorf("missing required fields")
	ErrInvalidParam  = fmt.Errorf("invalid parameter")
	ErrNotFound      = fmt.Errorf("not found")
	ErrConflict      = fmt.Errorf("conflict")
)

// ValidateService ejecuta el protocolo de validación para un scan.
type ValidateService interface {
	Validate(ctx context.Context, in dto.ValidateRequest, actorRef string) (*dto.ValidateResponse, error)
}

// ReportService procesa denuncias manuales de counterfeit.
type ReportService interface {
	Report(ctx context.Context, in dto.ReportRequest, actorRef string) (*dto.ReportResponse, error)
}

// BatchService emite tokens en bulk para un batch de producción.
type BatchService interface {
	Issue(ctx context.Context, in dto.BatchRequest, actorRef string) (*dto.BatchResponse, error)
}

// HistoryService lee el historial append-only de un token.
type HistoryService interface {
	History(ctx context.Context, tokenRef string, afterSeq int64, limit int) (*dto.HistoryResponse, error)
}

// Deps contiene las dependencias inyectables para los services.
type Deps struct {
	Engine *engine.Engine
	Issuer *issuer.Issuer
	Repo   core.Repository
}

// Services agrupa los services del dominio.
type Services struct {
	Validate ValidateService
	Report   ReportService
	Batch    BatchService
	History  HistoryService
}

// New crea todos los services con las dependencias inyectadas.
func New(deps Deps) *Services {
	return &Services{
		Validate: &validateService{deps: deps},
		Report:   &reportService{deps: deps},
		Batch:    &batchService{deps: deps},
		History:  &historyService{deps: deps},
	}
}
