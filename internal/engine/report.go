package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dropDatabas3/trueseal/internal/metrics"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

// ReportResult identifica el reporte manual en el ledger.
type ReportResult struct {
	ReportID string
	// TokenFound es false cuando el hash no corresponde a ningún token: el
	// reporte queda solo como anomalía del actor.
	TokenFound bool
	// Consumed indica que el token ya estaba en estado terminal y el reporte
	// solo agregó evidencia al historial.
	Consumed bool
}

// Report es el camino manual de denuncia de counterfeit. Si el token sigue
// Active lo transiciona a Reported por el mismo CAS que Validate; si ya fue
// consumido solo anexa la evidencia al ledger.
func (e *Engine) Report(ctx context.Context, secretHash, reporterRef, evidence string) (*ReportResult, error) {
	log := logger.From(ctx).With(logger.Layer("engine"), logger.Op("Report"))

	tok, err := e.repo.FetchBySecretHash(ctx, secretHash)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("engine: report lookup: %w", err)
		}
		// Sin token no hay ledger posible: queda la anomalía.
		if err := e.repo.RecordAnomaly(ctx, &core.Anomaly{
			SecretHash: secretHash,
			ActorRef:   reporterRef,
		}); err != nil {
			log.Warn("anomaly record failed", logger.Err(err))
		}
		return &ReportResult{ReportID: uuid.NewString(), TokenFound: false}, nil
	}

	consumed := tok.State.Terminal()
	if !consumed {
		moved, err := e.repo.Transition(ctx, tok.ID, core.StateActive, core.StateReported, reporterRef)
		switch {
		case err == nil:
			tok = moved
		case errors.Is(err, core.ErrConflict):
			// Otro request consumió el token mientras se reportaba; la
			// evidencia igual se registra contra el estado final.
			metrics.TransitionConflicts.Inc()
			if fresh, ferr := e.repo.FetchByID(ctx, tok.ID); ferr == nil {
				tok = fresh
			}
			consumed = true
		default:
			return nil, fmt.Errorf("engine: report transition: %w", err)
		}
	}

	reporter := reporterRef
	entry, err := e.repo.Append(ctx, &core.LedgerEntry{
		TokenRef:  tok.ID,
		EventType: core.EventCounterfeitReported,
		ActorRef:  &reporter,
		Payload: map[string]any{
			"manual":           true,
			"evidence":         evidence,
			"post_consumption": consumed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("engine: report ledger entry: %w", err)
	}

	// Solo el reporte que efectivamente consumió el token acredita puntos;
	// la clave (token, outcome) absorbe duplicados de todos modos.
	if !consumed {
		_ = e.dispatchReward(ctx, tok.ID, core.OutcomeCounterfeit, reporterRef)
		if e.notifier != nil {
			go e.notifier.CounterfeitAlert(context.WithoutCancel(ctx), tok, "manual report", 1.0)
		}
	}

	log.Info("counterfeit reported",
		logger.TokenID(tok.ID), logger.ActorRef(reporterRef), logger.Bool("post_consumption", consumed))
	return &ReportResult{ReportID: entry.ID, TokenFound: true, Consumed: consumed}, nil
}
