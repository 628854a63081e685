// Package reward acredita puntos por resultado de validación. La fila única
// (token_ref, outcome) en el reward ledger hace la acreditación idempotente:
// la segunda llamada con la misma clave es un no-op que retorna la fila previa.
package reward

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

// Amounts son los puntos por outcome (configurables).
type Amounts struct {
	Authentic   int64
	Suspicious  int64
	Counterfeit int64
}

// PointsFor retorna los puntos para un outcome; 0 significa que el outcome
// no acredita (expired, replay).
func (a Amounts) PointsFor(outcome core.Outcome) int64 {
	switch outcome {
	case core.OutcomeAuthentic:
		return a.Authentic
	case core.OutcomeSuspicious:
		return a.Suspicious
	case core.OutcomeCounterfeit:
		return a.Counterfeit
	default:
		return 0
	}
}

type Dispatcher struct {
	repo    core.RewardRepository
	amounts Amounts
}

func NewDispatcher(repo core.RewardRepository, amounts Amounts) *Dispatcher {
	return &Dispatcher{repo: repo, amounts: amounts}
}

// Credit acredita (tokenRef, outcome) al actor. Retorna la entrada (nueva o
// previa) y si fue creada en esta llamada.
func (d *Dispatcher) Credit(ctx context.Context, tokenRef string, outcome core.Outcome, actorRef string) (*core.RewardEntry, bool, error) {
	points := d.amounts.PointsFor(outcome)
	if points == 0 {
		return nil, false, nil
	}

	entry, created, err := d.repo.InsertReward(ctx, &core.RewardEntry{
		TokenRef: tokenRef,
		Outcome:  outcome,
		ActorRef: actorRef,
		Points:   points,
	})
	if err != nil {
		return nil, false, fmt.Errorf("reward: credit %s/%s: %w", tokenRef, outcome, err)
	}
	if !created {
		logger.From(ctx).Debug("reward already credited",
			logger.TokenID(tokenRef), logger.Outcome(string(outcome)))
	}
	return entry, created, nil
}

// Park registra un crédito fallido para reintento. Lo llama el engine cuando
// Credit falla: la decisión de autenticidad ya quedó registrada y no se revierte.
func (d *Dispatcher) Park(ctx context.Context, p *core.PendingReward) {
	if err := d.repo.EnqueuePending(ctx, p); err != nil {
		// Peor caso: se pierde el crédito pero nunca la decisión.
		logger.From(ctx).Error("failed to park pending reward",
			logger.TokenID(p.TokenRef), logger.Err(err))
	}
}
