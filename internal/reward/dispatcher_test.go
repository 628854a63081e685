package reward

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/dropDatabas3/trueseal/internal/store/memory"
)

var testAmounts = Amounts{Authentic: 10, Suspicious: 5, Counterfeit: 25}

func TestPointsFor(t *testing.T) {
	cases := []struct {
		outcome core.Outcome
		want    int64
	}{
		{core.OutcomeAuthentic, 10},
		{core.OutcomeSuspicious, 5},
		{core.OutcomeCounterfeit, 25},
		{core.OutcomeExpired, 0},
		{core.OutcomeReplay, 0},
	}
	for _, c := range cases {
		if got := testAmounts.PointsFor(c.outcome); got != c.want {
			t.Errorf("PointsFor(%s) = %d, want %d", c.outcome, got, c.want)
		}
	}
}

func TestCredit_Idempotent(t *testing.T) {
	repo := memory.New()
	d := NewDispatcher(repo, testAmounts)
	ctx := context.Background()

	first, created, err := d.Credit(ctx, "tok-1", core.OutcomeAuthentic, "user-1")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(10), first.Points)

	// Segunda llamada con la misma clave: no-op que retorna la fila previa.
	second, created, err := d.Credit(ctx, "tok-1", core.OutcomeAuthentic, "user-2")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "user-1", second.ActorRef)
}

func TestCredit_NonRewardableOutcomes(t *testing.T) {
	repo := memory.New()
	d := NewDispatcher(repo, testAmounts)
	ctx := context.Background()

	for _, outcome := range []core.Outcome{core.OutcomeExpired, core.OutcomeReplay} {
		entry, created, err := d.Credit(ctx, "tok-1", outcome, "user-1")
		require.NoError(t, err)
		require.False(t, created)
		require.Nil(t, entry, "outcome %s must not create a reward entry", outcome)
	}
}

func TestRetryWorker_DrainResolves(t *testing.T) {
	repo := memory.New()
	d := NewDispatcher(repo, testAmounts)
	w := NewRetryWorker(d, repo, time.Second, 3)
	ctx := context.Background()

	d.Park(ctx, &core.PendingReward{
		TokenRef:      "tok-1",
		Outcome:       core.OutcomeCounterfeit,
		ActorRef:      "user-1",
		NextAttemptAt: time.Now().UTC().Add(-time.Second),
	})

	require.NoError(t, w.Drain(ctx))

	// El crédito se aplicó y el pendiente quedó resuelto.
	entry, created, err := repo.InsertReward(ctx, &core.RewardEntry{
		TokenRef: "tok-1", Outcome: core.OutcomeCounterfeit, ActorRef: "x", Points: 25,
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "user-1", entry.ActorRef)

	due, err := repo.DuePending(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestRetryWorker_SkipsNotDue(t *testing.T) {
	repo := memory.New()
	d := NewDispatcher(repo, testAmounts)
	w := NewRetryWorker(d, repo, time.Second, 3)
	ctx := context.Background()

	d.Park(ctx, &core.PendingReward{
		TokenRef:      "tok-1",
		Outcome:       core.OutcomeAuthentic,
		ActorRef:      "user-1",
		NextAttemptAt: time.Now().UTC().Add(time.Hour),
	})

	require.NoError(t, w.Drain(ctx))

	// No venció: sigue en la cola y no hay crédito.
	due, err := repo.DuePending(ctx, time.Now().UTC().Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	_, created, err := repo.InsertReward(ctx, &core.RewardEntry{
		TokenRef: "tok-1", Outcome: core.OutcomeAuthentic, ActorRef: "x", Points: 10,
	})
	require.NoError(t, err)
	require.True(t, created, "no reward should exist before the pending is due")
}
