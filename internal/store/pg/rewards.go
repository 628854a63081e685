package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/google/uuid"
)

// InsertReward respeta la uniqueness (token_ref, outcome) vía ON CONFLICT.
// Si la fila ya existía retorna la existente con created=false: es el
// mecanismo de idempotencia del dispatcher.
func (s *Store) InsertReward(ctx context.Context, e *core.RewardEntry) (*core.RewardEntry, bool, error) {
	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO reward_entry (id, token_ref, outcome, actor_ref, points, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6)
	           ON CONFLICT (token_ref, outcome) DO NOTHING
	           RETURNING id`
	var id string
	err := s.pool.QueryRow(ctx, q, cp.ID, cp.TokenRef, cp.Outcome, cp.ActorRef, cp.Points, cp.CreatedAt).Scan(&id)
	if err == nil {
		return &cp, true, nil
	}
	if !isNoRows(err) {
		return nil, false, err
	}

	// Conflict: devolvemos la fila previa.
	const sel = `SELECT id, token_ref, outcome, actor_ref, points, created_at
	             FROM reward_entry WHERE token_ref = $1 AND outcome = $2`
	var prior core.RewardEntry
	if err := s.pool.QueryRow(ctx, sel, cp.TokenRef, cp.Outcome).Scan(
		&prior.ID, &prior.TokenRef, &prior.Outcome, &prior.ActorRef, &prior.Points, &prior.CreatedAt,
	); err != nil {
		if isNoRows(err) {
			return nil, false, core.ErrNotFound
		}
		return nil, false, err
	}
	return &prior, false, nil
}

func (s *Store) EnqueuePending(ctx context.Context, p *core.PendingReward) error {
	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO reward_pending (id, token_ref, outcome, actor_ref, attempts, next_attempt_at, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, q, cp.ID, cp.TokenRef, cp.Outcome, cp.ActorRef, cp.Attempts, cp.NextAttemptAt, cp.CreatedAt)
	return err
}

func (s *Store) DuePending(ctx context.Context, now time.Time, limit int) ([]core.PendingReward, error) {
	const q = `SELECT id, token_ref, outcome, actor_ref, attempts, next_attempt_at, created_at
	           FROM reward_pending
	           WHERE next_attempt_at <= $1
	           ORDER BY next_attempt_at
	           LIMIT $2`
	rows, err := s.pool.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.PendingReward
	for rows.Next() {
		var p core.PendingReward
		if err := rows.Scan(&p.ID, &p.TokenRef, &p.Outcome, &p.ActorRef, &p.Attempts, &p.NextAttemptAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ResolvePending(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM reward_pending WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ReschedulePending(ctx context.Context, id string, attempts int, next time.Time) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE reward_pending SET attempts = $2, next_attempt_at = $3 WHERE id = $1`,
		id, attempts, next)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
