package seal

import (
	"context"
	"strings"

	"github.com/dropDatabas3/trueseal/internal/audit"
	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	sealcrypto "github.com/dropDatabas3/trueseal/internal/security/seal"
)

type reportService struct {
	deps Deps
}

func (s *reportService) Report(ctx context.Context, in dto.ReportRequest, actorRef string) (*dto.ReportResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("seal.report"),
		logger.Op("Report"),
	)

	secret := strings.TrimSpace(in.Secret)
	if secret == "" {
		return nil, ErrMissingFields
	}
	if actorRef == "" {
		actorRef = strings.TrimSpace(in.ReporterRef)
	}

	res, err := s.deps.Engine.Report(ctx, sealcrypto.HashSecret(secret), actorRef, in.Evidence)
	if err != nil {
		log.Error("report failed", logger.Err(err))
		return nil, err
	}

	audit.Log(ctx, "counterfeit.reported", map[string]any{
		"report_id":   res.ReportID,
		"token_found": res.TokenFound,
		"actor_ref":   actorRef,
	})

	return &dto.ReportResponse{
		ReportID:   res.ReportID,
		TokenFound: res.TokenFound,
		Consumed:   res.Consumed,
	}, nil
}
