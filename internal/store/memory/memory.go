// Package memory implementa core.Repository en memoria.
// Se usa en dev (storage.driver=memory) y en tests. La semántica de
// Transition replica el conditional update del driver postgres: bajo el lock
// solo un caller ve state == from.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	tokens map[string]*core.Token // por id
	byHash map[string]string      // secret_hash -> id

	ledger  []core.LedgerEntry
	nextSeq int64

	rewards map[string]core.RewardEntry // key: tokenRef + "|" + outcome
	pending map[string]core.PendingReward

	anomalies []core.Anomaly
}

func New() *Store {
	return &Store{
		tokens:  make(map[string]*core.Token),
		byHash:  make(map[string]string),
		rewards: make(map[string]core.RewardEntry),
		pending: make(map[string]core.PendingReward),
		nextSeq: 1,
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ─── Tokens ───

func copyToken(t *core.Token) *core.Token {
	cp := *t
	return &cp
}

func (s *Store) FetchBySecretHash(_ context.Context, hash string) (*core.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyToken(s.tokens[id]), nil
}

func (s *Store) FetchByID(_ context.Context, id string) (*core.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyToken(t), nil
}

func (s *Store) Transition(_ context.Context, tokenID string, from, to core.TokenState, actorRef string) (*core.Token, error) {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return nil, core.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenID]
	if !ok {
		return nil, core.ErrNotFound
	}
	if t.State != from {
		return nil, core.ErrConflict
	}

	now := time.Now().UTC()
	t.State = to
	t.ConsumedAt = &now
	if actorRef != "" {
		a := actorRef
		t.ConsumedBy = &a
	}
	return copyToken(t), nil
}

func (s *Store) CreateBatch(_ context.Context, tokens []*core.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validación previa: la colisión de cualquier hash falla el batch entero.
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if t.SecretHash == "" || t.ID == "" {
			return core.ErrInvalid
		}
		if _, dup := s.byHash[t.SecretHash]; dup || seen[t.SecretHash] {
			return core.ErrConflict
		}
		seen[t.SecretHash] = true
	}
	for _, t := range tokens {
		cp := copyToken(t)
		s.tokens[cp.ID] = cp
		s.byHash[cp.SecretHash] = cp.ID
	}
	return nil
}

// ─── Ledger ───

func (s *Store) Append(_ context.Context, e *core.LedgerEntry) (*core.LedgerEntry, error) {
	if e.TokenRef == "" || e.EventType == "" {
		return nil, core.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now().UTC()
	}
	cp.Seq = s.nextSeq
	s.nextSeq++

	if e.Payload != nil {
		cp.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			cp.Payload[k] = v
		}
	}

	s.ledger = append(s.ledger, cp)
	out := cp
	return &out, nil
}

func (s *Store) History(_ context.Context, tokenRef string, afterSeq int64, limit int) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.LedgerEntry
	for _, e := range s.ledger {
		if e.TokenRef == tokenRef && e.Seq > afterSeq {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─── Rewards ───

func rewardKey(tokenRef string, outcome core.Outcome) string {
	return tokenRef + "|" + string(outcome)
}

func (s *Store) InsertReward(_ context.Context, e *core.RewardEntry) (*core.RewardEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rewardKey(e.TokenRef, e.Outcome)
	if existing, ok := s.rewards[key]; ok {
		cp := existing
		return &cp, false, nil
	}

	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.rewards[key] = cp
	out := cp
	return &out, true, nil
}

func (s *Store) EnqueuePending(_ context.Context, p *core.PendingReward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.pending[cp.ID] = cp
	return nil
}

func (s *Store) DuePending(_ context.Context, now time.Time, limit int) ([]core.PendingReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.PendingReward
	for _, p := range s.pending {
		if !p.NextAttemptAt.After(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ResolvePending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.pending, id)
	return nil
}

func (s *Store) ReschedulePending(_ context.Context, id string, attempts int, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return core.ErrNotFound
	}
	p.Attempts = attempts
	p.NextAttemptAt = next
	s.pending[id] = p
	return nil
}

// ─── Anomalies ───

func (s *Store) RecordAnomaly(_ context.Context, a *core.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now().UTC()
	}
	s.anomalies = append(s.anomalies, cp)
	return nil
}

func (s *Store) CountAnomalies(_ context.Context, actorRef string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.anomalies {
		if a.ActorRef == actorRef && !a.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}
