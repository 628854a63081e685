package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/google/uuid"
)

func (s *Store) RecordAnomaly(ctx context.Context, a *core.Anomaly) error {
	cp := *a
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now().UTC()
	}

	const q = `INSERT INTO anomaly (id, secret_hash, actor_ref, channel_ref, occurred_at)
	           VALUES ($1, $2, $3, NULLIF($4, ''), $5)`
	_, err := s.pool.Exec(ctx, q, cp.ID, cp.SecretHash, cp.ActorRef, cp.ChannelRef, cp.OccurredAt)
	return err
}

func (s *Store) CountAnomalies(ctx context.Context, actorRef string, since time.Time) (int64, error) {
	const q = `SELECT count(*) FROM anomaly WHERE actor_ref = $1 AND occurred_at >= $2`
	var n int64
	if err := s.pool.QueryRow(ctx, q, actorRef, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
