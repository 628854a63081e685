package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/jackc/pgx/v5"
)

const tokenCols = `id, secret_hash, product_ref, batch_ref, manufacturer_ref,
	state, issued_at, expires_at, consumed_at, consumed_by`

func scanToken(row pgx.Row) (*core.Token, error) {
	var t core.Token
	err := row.Scan(
		&t.ID, &t.SecretHash, &t.ProductRef, &t.BatchRef, &t.ManufacturerRef,
		&t.State, &t.IssuedAt, &t.ExpiresAt, &t.ConsumedAt, &t.ConsumedBy,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) FetchBySecretHash(ctx context.Context, hash string) (*core.Token, error) {
	q := `SELECT ` + tokenCols + ` FROM token WHERE secret_hash = $1`
	return scanToken(s.pool.QueryRow(ctx, q, hash))
}

func (s *Store) FetchByID(ctx context.Context, id string) (*core.Token, error) {
	q := `SELECT ` + tokenCols + ` FROM token WHERE id = $1`
	return scanToken(s.pool.QueryRow(ctx, q, id))
}

// Transition es el compare-and-swap sobre el estado: el WHERE con el estado
// esperado hace que solo un caller concurrente aplique el UPDATE.
func (s *Store) Transition(ctx context.Context, tokenID string, from, to core.TokenState, actorRef string) (*core.Token, error) {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return nil, core.ErrInvalid
	}

	q := `UPDATE token
	      SET state = $3, consumed_at = now(), consumed_by = NULLIF($4, '')
	      WHERE id = $1 AND state = $2
	      RETURNING ` + tokenCols

	t, err := scanToken(s.pool.QueryRow(ctx, q, tokenID, from, to, actorRef))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	// Sin fila actualizada: distinguimos conflicto de inexistente.
	if _, err := s.FetchByID(ctx, tokenID); err != nil {
		return nil, err // ErrNotFound o error de store
	}
	return nil, core.ErrConflict
}

// CreateBatch inserta todo el batch en una transacción. El índice único de
// secret_hash aborta el batch completo ante cualquier colisión.
func (s *Store) CreateBatch(ctx context.Context, tokens []*core.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	for _, t := range tokens {
		if t.ID == "" || t.SecretHash == "" {
			return core.ErrInvalid
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := &pgx.Batch{}
	const q = `INSERT INTO token
		(id, secret_hash, product_ref, batch_ref, manufacturer_ref, state, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, t := range tokens {
		b.Queue(q, t.ID, t.SecretHash, t.ProductRef, t.BatchRef, t.ManufacturerRef, t.State, t.IssuedAt, t.ExpiresAt)
	}

	br := tx.SendBatch(ctx, b)
	for range tokens {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isUniqueViolation(err) {
				return fmt.Errorf("pg: secret hash collision: %w", core.ErrConflict)
			}
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
