package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/google/uuid"
)

// Append inserta la entrada y deja que el store asigne seq (BIGSERIAL).
// No existe camino de UPDATE/DELETE sobre ledger_entry en este package.
func (s *Store) Append(ctx context.Context, e *core.LedgerEntry) (*core.LedgerEntry, error) {
	if e.TokenRef == "" || e.EventType == "" {
		return nil, core.ErrInvalid
	}

	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now().UTC()
	}

	const q = `INSERT INTO ledger_entry (id, token_ref, event_type, actor_ref, occurred_at, payload)
	           VALUES ($1, $2, $3, $4, $5, $6)
	           RETURNING seq`
	if err := s.pool.QueryRow(ctx, q,
		cp.ID, cp.TokenRef, cp.EventType, cp.ActorRef, cp.OccurredAt, cp.Payload,
	).Scan(&cp.Seq); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *Store) History(ctx context.Context, tokenRef string, afterSeq int64, limit int) ([]core.LedgerEntry, error) {
	q := `SELECT id, seq, token_ref, event_type, actor_ref, occurred_at, payload
	      FROM ledger_entry
	      WHERE token_ref = $1 AND seq > $2
	      ORDER BY occurred_at, seq`
	args := []any{tokenRef, afterSeq}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Seq, &e.TokenRef, &e.EventType, &e.ActorRef, &e.OccurredAt, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
