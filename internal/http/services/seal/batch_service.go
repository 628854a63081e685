package seal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/trueseal/internal/audit"
	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	"github.com/dropDatabas3/trueseal/internal/issuer"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

type batchService struct {
	deps Deps
}

func (s *batchService) Issue(ctx context.Context, in dto.BatchRequest, actorRef string) (*dto.BatchResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("seal.batch"),
		logger.Op("Issue"),
	)

	var ttl time.Duration
	if in.TTL != "" {
		d, err := time.ParseDuration(in.TTL)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: ttl", ErrInvalidParam)
		}
		ttl = d
	}

	spec := issuer.BatchSpec{
		ProductRef:      in.ProductRef,
		ManufacturerRef: in.ManufacturerRef,
		BatchNumber:     in.BatchNumber,
		Count:           in.Count,
		TTL:             ttl,
	}

	issued, err := s.deps.Issuer.IssueBatch(ctx, spec, actorRef)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalid):
			return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		case errors.Is(err, core.ErrConflict):
			return nil, ErrConflict
		}
		log.Error("batch issuance failed", logger.BatchRef(in.BatchNumber), logger.Err(err))
		return nil, err
	}

	audit.Log(ctx, "batch.issued", map[string]any{
		"batch_ref":        in.BatchNumber,
		"product_ref":      in.ProductRef,
		"manufacturer_ref": in.ManufacturerRef,
		"count":            len(issued),
		"actor_ref":        actorRef,
	})

	out := &dto.BatchResponse{
		BatchRef: in.BatchNumber,
		Count:    len(issued),
		Tokens:   make([]dto.IssuedTokenView, 0, len(issued)),
	}
	if len(issued) > 0 {
		out.IssuedAt = issued[0].Token.IssuedAt
	}
	for _, it := range issued {
		out.Tokens = append(out.Tokens, dto.IssuedTokenView{ID: it.Token.ID, Secret: it.Secret})
	}
	return out, nil
}
