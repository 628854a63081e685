package audit

import (
	"context"

	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"go.uber.org/zap"
)

// Log writes a structured audit event for admin actions (batch issuance,
// manual reports). In the future this can be wired to DB or external sink.
func Log(ctx context.Context, event string, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.String("audit_event", event))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	logger.From(ctx).Info("audit", zf...)
}
