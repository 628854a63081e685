package seal

import (
	"context"
	"errors"
	"strings"

	dto "github.com/dropDatabas3/trueseal/internal/http/dto/seal"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

// defaultHistoryLimit acota la página cuando el caller no pide un limit.
const defaultHistoryLimit = 100

type historyService struct {
	deps Deps
}

func (s *historyService) History(ctx context.Context, tokenRef string, afterSeq int64, limit int) (*dto.HistoryResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("seal.history"),
		logger.Op("History"),
	)

	tokenRef = strings.TrimSpace(tokenRef)
	if tokenRef == "" {
		return nil, ErrMissingFields
	}
	if afterSeq < 0 || limit < 0 {
		return nil, ErrInvalidParam
	}
	if limit == 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	// 404 explícito para tokens inexistentes: un historial vacío de un token
	// real es una respuesta válida y distinta.
	if _, err := s.deps.Repo.FetchByID(ctx, tokenRef); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error("token lookup failed", logger.TokenID(tokenRef), logger.Err(err))
		return nil, err
	}

	entries, err := s.deps.Repo.History(ctx, tokenRef, afterSeq, limit)
	if err != nil {
		log.Error("history read failed", logger.TokenID(tokenRef), logger.Err(err))
		return nil, err
	}

	out := &dto.HistoryResponse{
		TokenRef: tokenRef,
		Entries:  make([]dto.HistoryEntry, 0, len(entries)),
	}
	for _, e := range entries {
		he := dto.HistoryEntry{
			Seq:        e.Seq,
			EventType:  string(e.EventType),
			OccurredAt: e.OccurredAt,
			Payload:    e.Payload,
		}
		if e.ActorRef != nil {
			he.ActorRef = *e.ActorRef
		}
		out.Entries = append(out.Entries, he)
	}
	// Página llena: probablemente haya más.
	if len(entries) == limit {
		out.NextAfterSeq = entries[len(entries)-1].Seq
	}
	return out, nil
}
