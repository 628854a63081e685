// Package issuer crea tokens en bulk para un batch de producción.
// Política de ledger: una entrada Issued por token (explícita y consistente;
// nunca se mezcla con entradas batch-level).
package issuer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/trueseal/internal/metrics"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/security/seal"
	"github.com/dropDatabas3/trueseal/internal/store/core"
)

// BatchSpec describe el pedido de emisión.
type BatchSpec struct {
	ProductRef      string
	ManufacturerRef string
	BatchNumber     string
	Count           int
	// TTL opcional: si es > 0 los tokens expiran a IssuedAt + TTL.
	TTL time.Duration
}

func (s BatchSpec) validate() error {
	if s.ProductRef == "" || s.ManufacturerRef == "" || s.BatchNumber == "" {
		return fmt.Errorf("issuer: product, manufacturer and batch number are required: %w", core.ErrInvalid)
	}
	if s.Count < 1 || s.Count > 10_000 {
		return fmt.Errorf("issuer: count must be in [1, 10000]: %w", core.ErrInvalid)
	}
	return nil
}

// IssuedToken es un token recién creado junto con su secreto en claro.
// El secreto se entrega una sola vez, para grabarse en el NFC/QR.
type IssuedToken struct {
	Token  core.Token
	Secret string
}

type Issuer struct {
	repo core.Repository
}

func New(repo core.Repository) *Issuer {
	return &Issuer{repo: repo}
}

// IssueBatch genera Count tokens con secretos criptográficamente
// independientes. La unicidad de los hashes no se asume: la verifica el índice
// único del store, y una colisión falla el batch completo.
func (i *Issuer) IssueBatch(ctx context.Context, spec BatchSpec, actorRef string) ([]IssuedToken, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if spec.TTL > 0 {
		e := now.Add(spec.TTL)
		expiresAt = &e
	}

	issued := make([]IssuedToken, 0, spec.Count)
	tokens := make([]*core.Token, 0, spec.Count)
	for n := 0; n < spec.Count; n++ {
		secret, err := seal.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("issuer: secret generation: %w", err)
		}
		t := core.Token{
			ID:              uuid.NewString(),
			SecretHash:      seal.HashSecret(secret),
			ProductRef:      spec.ProductRef,
			BatchRef:        spec.BatchNumber,
			ManufacturerRef: spec.ManufacturerRef,
			State:           core.StateActive,
			IssuedAt:        now,
			ExpiresAt:       expiresAt,
		}
		issued = append(issued, IssuedToken{Token: t, Secret: secret})
		tokens = append(tokens, &issued[n].Token)
	}

	if err := i.repo.CreateBatch(ctx, tokens); err != nil {
		return nil, fmt.Errorf("issuer: batch %s: %w", spec.BatchNumber, err)
	}

	// Una entrada Issued por token. El batch ya está comprometido: un fallo
	// del ledger acá se loguea y no deshace la emisión.
	actor := actorRef
	for _, it := range issued {
		_, err := i.repo.Append(ctx, &core.LedgerEntry{
			TokenRef:   it.Token.ID,
			EventType:  core.EventIssued,
			ActorRef:   &actor,
			OccurredAt: now,
			Payload: map[string]any{
				"batch_ref":   spec.BatchNumber,
				"product_ref": spec.ProductRef,
			},
		})
		if err != nil {
			logger.From(ctx).Error("issued ledger entry failed",
				logger.TokenID(it.Token.ID), logger.BatchRef(spec.BatchNumber), logger.Err(err))
		}
	}

	metrics.TokensIssued.Add(float64(len(issued)))
	logger.From(ctx).Info("batch issued",
		logger.BatchRef(spec.BatchNumber),
		logger.ProductRef(spec.ProductRef),
		logger.Count(len(issued)))
	return issued, nil
}
