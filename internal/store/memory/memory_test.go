package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/trueseal/internal/store/core"
)

func seedToken(t *testing.T, s *Store, id, hash string) *core.Token {
	t.Helper()
	tok := &core.Token{
		ID:         id,
		SecretHash: hash,
		ProductRef: "P-1",
		BatchRef:   "B-001",
		State:      core.StateActive,
		IssuedAt:   time.Now().UTC(),
	}
	if err := s.CreateBatch(context.Background(), []*core.Token{tok}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return tok
}

func TestTransition_ExactlyOneWinner(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedToken(t, s, "tk-1", "h-1")

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Transition(ctx, "tk-1", core.StateActive, core.StateValidated, "actor")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, core.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("want 1 winner and %d conflicts, got %d/%d", n-1, wins, conflicts)
	}

	tok, err := s.FetchByID(ctx, "tk-1")
	if err != nil {
		t.Fatal(err)
	}
	if tok.State != core.StateValidated || tok.ConsumedAt == nil {
		t.Fatalf("token not consumed correctly: %+v", tok)
	}
}

func TestTransition_TerminalStateRejects(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedToken(t, s, "tk-1", "h-1")

	if _, err := s.Transition(ctx, "tk-1", core.StateActive, core.StateReported, "a"); err != nil {
		t.Fatal(err)
	}
	// No hay transiciones desde un estado terminal.
	if _, err := s.Transition(ctx, "tk-1", core.StateReported, core.StateValidated, "a"); !errors.Is(err, core.ErrInvalid) {
		t.Fatalf("transition out of terminal state must be invalid, got %v", err)
	}
	if _, err := s.Transition(ctx, "tk-1", core.StateActive, core.StateValidated, "a"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestTransition_NotFound(t *testing.T) {
	s := New()
	if _, err := s.Transition(context.Background(), "nope", core.StateActive, core.StateValidated, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateBatch_CollisionFailsWholeBatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedToken(t, s, "tk-1", "h-1")

	batch := []*core.Token{
		{ID: "tk-2", SecretHash: "h-2", State: core.StateActive},
		{ID: "tk-3", SecretHash: "h-1", State: core.StateActive}, // colisiona
	}
	if err := s.CreateBatch(ctx, batch); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	// Nada del batch debe haberse insertado.
	if _, err := s.FetchBySecretHash(ctx, "h-2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("partial batch insert detected: %v", err)
	}
}

func TestLedger_OrderAndMonotonicHistory(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Mismo occurred_at: desempata por orden de inserción (seq).
	for i, et := range []core.EventType{core.EventIssued, core.EventValidationAttempted, core.EventValidated} {
		at := base
		if i == 2 {
			at = base.Add(time.Minute)
		}
		if _, err := s.Append(ctx, &core.LedgerEntry{TokenRef: "tk-1", EventType: et, OccurredAt: at}); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = s.Append(ctx, &core.LedgerEntry{TokenRef: "other", EventType: core.EventIssued})

	h, err := s.History(ctx, "tk-1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 3 {
		t.Fatalf("want 3 entries, got %d", len(h))
	}
	want := []core.EventType{core.EventIssued, core.EventValidationAttempted, core.EventValidated}
	for i, e := range h {
		if e.EventType != want[i] {
			t.Fatalf("entry %d: want %s got %s", i, want[i], e.EventType)
		}
	}

	// La historia solo crece.
	if _, err := s.Append(ctx, &core.LedgerEntry{TokenRef: "tk-1", EventType: core.EventStatusUpdated}); err != nil {
		t.Fatal(err)
	}
	h2, _ := s.History(ctx, "tk-1", 0, 0)
	if len(h2) != len(h)+1 {
		t.Fatalf("history must be monotonically non-decreasing")
	}

	// Paginación reanudable por seq.
	page1, _ := s.History(ctx, "tk-1", 0, 2)
	if len(page1) != 2 {
		t.Fatalf("want page of 2, got %d", len(page1))
	}
	page2, _ := s.History(ctx, "tk-1", page1[len(page1)-1].Seq, 0)
	if len(page1)+len(page2) != len(h2) {
		t.Fatalf("paged history must cover the full sequence")
	}
}

func TestLedger_AppendCopiesPayload(t *testing.T) {
	s := New()
	ctx := context.Background()

	payload := map[string]any{"score": 0.4}
	e, err := s.Append(ctx, &core.LedgerEntry{TokenRef: "tk-1", EventType: core.EventValidated, Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
	// Mutar el payload del caller no debe tocar la entrada persistida.
	payload["score"] = 0.99

	h, _ := s.History(ctx, "tk-1", 0, 0)
	if h[0].ID != e.ID {
		t.Fatalf("unexpected entry")
	}
	if h[0].Payload["score"] != 0.4 {
		t.Fatalf("ledger entry was mutated after append")
	}
}

func TestInsertReward_Idempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, created, err := s.InsertReward(ctx, &core.RewardEntry{
		TokenRef: "tk-1", Outcome: core.OutcomeAuthentic, ActorRef: "actor", Points: 10,
	})
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}

	second, created, err := s.InsertReward(ctx, &core.RewardEntry{
		TokenRef: "tk-1", Outcome: core.OutcomeAuthentic, ActorRef: "actor", Points: 999,
	})
	if err != nil || created {
		t.Fatalf("second insert must be a no-op: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Points != 10 {
		t.Fatalf("second call must return the prior entry, got %+v", second)
	}

	// Distinto outcome para el mismo token es otra fila.
	_, created, err = s.InsertReward(ctx, &core.RewardEntry{
		TokenRef: "tk-1", Outcome: core.OutcomeCounterfeit, ActorRef: "actor", Points: 25,
	})
	if err != nil || !created {
		t.Fatalf("different outcome should create: created=%v err=%v", created, err)
	}
}

func TestPendingRewards_Lifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	p := &core.PendingReward{TokenRef: "tk-1", Outcome: core.OutcomeAuthentic, ActorRef: "a", NextAttemptAt: now.Add(-time.Minute)}
	if err := s.EnqueuePending(ctx, p); err != nil {
		t.Fatal(err)
	}
	future := &core.PendingReward{TokenRef: "tk-2", Outcome: core.OutcomeAuthentic, ActorRef: "a", NextAttemptAt: now.Add(time.Hour)}
	if err := s.EnqueuePending(ctx, future); err != nil {
		t.Fatal(err)
	}

	due, err := s.DuePending(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].TokenRef != "tk-1" {
		t.Fatalf("want only the overdue entry, got %+v", due)
	}

	if err := s.ReschedulePending(ctx, due[0].ID, 2, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if due2, _ := s.DuePending(ctx, now, 10); len(due2) != 0 {
		t.Fatalf("rescheduled entry must not be due")
	}

	if err := s.ResolvePending(ctx, due[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := s.ResolvePending(ctx, due[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("resolve twice: want ErrNotFound, got %v", err)
	}
}

func TestAnomalies_CountSince(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if err := s.RecordAnomaly(ctx, &core.Anomaly{SecretHash: "x", ActorRef: "actor", OccurredAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.RecordAnomaly(ctx, &core.Anomaly{SecretHash: "x", ActorRef: "actor", OccurredAt: now.Add(-48 * time.Hour)})
	_ = s.RecordAnomaly(ctx, &core.Anomaly{SecretHash: "x", ActorRef: "other", OccurredAt: now})

	n, err := s.CountAnomalies(ctx, "actor", now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("want 3 recent anomalies for actor, got %d", n)
	}
}
