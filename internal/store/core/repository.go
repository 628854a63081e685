package core

import (
	"context"
	"time"
)

// TokenRepository expone el token store. Transition es el primitivo de
// exclusión per-token: compare-and-swap sobre el estado esperado.
type TokenRepository interface {
	FetchBySecretHash(ctx context.Context, hash string) (*Token, error)
	FetchByID(ctx context.Context, id string) (*Token, error)

	// Transition aplica Active→terminal de forma atómica. Si el estado actual
	// no es `from`, retorna ErrConflict sin efectos; si el token no existe,
	// ErrNotFound. Exactamente un caller concurrente puede ganar.
	Transition(ctx context.Context, tokenID string, from, to TokenState, actorRef string) (*Token, error)

	// CreateBatch inserta todos los tokens o ninguno. Una colisión de
	// secret_hash (índice único) falla el batch completo con ErrConflict.
	CreateBatch(ctx context.Context, tokens []*Token) error
}

// LedgerRepository es el log append-only de eventos de supply-chain.
// No existe update ni delete en el contrato.
type LedgerRepository interface {
	Append(ctx context.Context, e *LedgerEntry) (*LedgerEntry, error)

	// History retorna las entradas del token ordenadas por occurred_at y seq,
	// empezando después de afterSeq. Paginable y por lo tanto reanudable.
	History(ctx context.Context, tokenRef string, afterSeq int64, limit int) ([]LedgerEntry, error)
}

// RewardRepository persiste el ledger de recompensas y la cola de reintentos.
type RewardRepository interface {
	// InsertReward inserta respetando la uniqueness (token_ref, outcome).
	// Si ya existe una fila con esa clave retorna la existente y created=false.
	InsertReward(ctx context.Context, e *RewardEntry) (entry *RewardEntry, created bool, err error)

	EnqueuePending(ctx context.Context, p *PendingReward) error
	DuePending(ctx context.Context, now time.Time, limit int) ([]PendingReward, error)
	ResolvePending(ctx context.Context, id string) error
	ReschedulePending(ctx context.Context, id string, attempts int, next time.Time) error
}

// AnomalyRepository registra intentos con hash desconocido.
type AnomalyRepository interface {
	RecordAnomaly(ctx context.Context, a *Anomaly) error

	// CountAnomalies cuenta intentos del actor desde `since` (señal de reincidencia).
	CountAnomalies(ctx context.Context, actorRef string, since time.Time) (int64, error)
}

// Repository agrupa todos los stores detrás de una sola conexión.
type Repository interface {
	TokenRepository
	LedgerRepository
	RewardRepository
	AnomalyRepository

	Ping(ctx context.Context) error
	Close()
}
