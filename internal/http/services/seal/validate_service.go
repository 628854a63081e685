package seal

import (
	"context"
	"strings"

	"github.com/dropDatabas3/trueseal/internal/engine"
	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	sealcrypto "github.com/dropDatabas3/trueseal/internal/security/seal"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

type validateService struct {
	deps Deps
}

func (s *validateService) Validate(ctx context.Context, in dto.ValidateRequest, actorRef string) (*dto.ValidateResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("seal.validate"),
		logger.Op("Validate"),
	)

	secret := strings.TrimSpace(in.Secret)
	if secret == "" {
		return nil, ErrMissingFields
	}

	// El actor autenticado pisa al declarado en el body.
	if actorRef == "" {
		actorRef = strings.TrimSpace(in.ActorRef)
	}

	req := engine.Request{
		ActorRef:          actorRef,
		ChannelRef:        strings.TrimSpace(in.ChannelRef),
		DeviceFingerprint: in.DeviceFingerprint,
	}
	if in.Lat != nil && in.Lng != nil {
		req.Lat, req.Lng = *in.Lat, *in.Lng
		req.HasLocation = true
	}

	res, err := s.deps.Engine.Validate(ctx, sealcrypto.HashSecret(secret), req)
	if err != nil {
		log.Error("validation failed", logger.Err(err))
		return nil, err
	}

	// Replay es una distinción interna (ledger, métricas); para el caller un
	// token ya consumido es counterfeit, con reason y original_consumed_at
	// como detalle operador.
	outcome := res.Outcome
	if outcome == core.OutcomeReplay {
		outcome = core.OutcomeCounterfeit
	}

	out := &dto.ValidateResponse{
		Outcome:            string(outcome),
		Reason:             string(res.Reason),
		RiskScore:          res.RiskScore,
		Degraded:           res.Degraded,
		OriginalConsumedAt: res.OriginalConsumedAt,
		RewardPoints:       res.RewardPoints,
	}
	if res.Token != nil {
		out.Token = tokenView(res.Token)
	}
	return out, nil
}

func tokenView(t *core.Token) *dto.TokenView {
	return &dto.TokenView{
		ID:              t.ID,
		ProductRef:      t.ProductRef,
		BatchRef:        t.BatchRef,
		ManufacturerRef: t.ManufacturerRef,
		State:           string(t.State),
		IssuedAt:        t.IssuedAt,
		ExpiresAt:       t.ExpiresAt,
	}
}
