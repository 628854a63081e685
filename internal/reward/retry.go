package reward

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/trueseal/internal/metrics"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

// RetryWorker drena la cola de créditos pendientes con backoff exponencial.
type RetryWorker struct {
	dispatcher  *Dispatcher
	repo        core.RewardRepository
	interval    time.Duration
	maxAttempts int
}

func NewRetryWorker(d *Dispatcher, repo core.RewardRepository, interval time.Duration, maxAttempts int) *RetryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &RetryWorker{dispatcher: d, repo: repo, interval: interval, maxAttempts: maxAttempts}
}

// Run bloquea hasta que ctx se cancele. Pensado para correr en una goroutine
// desde main.
func (w *RetryWorker) Run(ctx context.Context) {
	log := logger.L().Named("reward-retry")
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.Drain(ctx); err != nil {
				log.Warn("retry pass failed", logger.Err(err))
			}
		}
	}
}

// Drain procesa una pasada de pendientes vencidos.
func (w *RetryWorker) Drain(ctx context.Context) error {
	now := time.Now().UTC()
	due, err := w.repo.DuePending(ctx, now, 100)
	if err != nil {
		return err
	}

	for _, p := range due {
		metrics.RewardRetries.Inc()

		_, _, err := w.dispatcher.Credit(ctx, p.TokenRef, p.Outcome, p.ActorRef)
		if err == nil {
			if err := w.repo.ResolvePending(ctx, p.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
				logger.From(ctx).Warn("failed to resolve pending reward", logger.ID(p.ID), logger.Err(err))
			}
			continue
		}

		attempts := p.Attempts + 1
		if attempts >= w.maxAttempts {
			// Se agota el reintento automático; queda para reconciliación manual.
			logger.From(ctx).Error("pending reward exhausted retries",
				logger.TokenID(p.TokenRef), logger.Outcome(string(p.Outcome)), logger.Err(err))
			if err := w.repo.ResolvePending(ctx, p.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
				logger.From(ctx).Warn("failed to drop exhausted pending reward", logger.ID(p.ID), logger.Err(err))
			}
			continue
		}

		backoff := w.interval * time.Duration(1<<attempts)
		if backoff > time.Hour {
			backoff = time.Hour
		}
		if err := w.repo.ReschedulePending(ctx, p.ID, attempts, now.Add(backoff)); err != nil {
			logger.From(ctx).Warn("failed to reschedule pending reward", logger.ID(p.ID), logger.Err(err))
		}
	}
	return nil
}
