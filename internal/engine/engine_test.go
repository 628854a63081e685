package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/trueseal/internal/config"
	"github.com/dropDatabas3/trueseal/internal/fraud"
	"github.com/dropDatabas3/trueseal/internal/rate"
	"github.com/dropDatabas3/trueseal/internal/reward"
	"github.com/dropDatabas3/trueseal/internal/security/seal"
	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/dropDatabas3/trueseal/internal/store/memory"
	"github.com/dropDatabas3/trueseal/internal/trust"
	"github.com/dropDatabas3/trueseal/internal/verifier"
)

// stubVerifier siempre responde el mismo status.
type stubVerifier struct{ status verifier.Status }

func (s stubVerifier) Verify(context.Context, string) verifier.Status { return s.status }

type testEnv struct {
	repo   *memory.Store
	engine *Engine
}

type envOpts struct {
	weights  fraud.Weights
	verifier verifier.Client
	enabled  bool
	failOpen bool
	channels []config.Channel
	notifier Notifier
}

func defaultOpts() envOpts {
	return envOpts{
		// Todo el peso en trust: con un canal de trust 1.0 el score es 0,
		// con trust 0.0 el score es 1. Hace los casos deterministas.
		weights:  fraud.Weights{Trust: 1},
		failOpen: true,
		channels: []config.Channel{
			{Ref: "retail-ok", Trust: 1.0},
			{Ref: "street-market", Trust: 0.0},
		},
	}
}

func newTestEnv(t *testing.T, o envOpts) *testEnv {
	t.Helper()

	repo := memory.New()
	scorer, err := fraud.NewWeightedScorer(o.weights)
	require.NoError(t, err)

	dispatcher := reward.NewDispatcher(repo, reward.Amounts{Authentic: 10, Suspicious: 5, Counterfeit: 25})

	eng := New(repo, scorer, o.verifier, trust.NewStaticLookup(o.channels),
		rate.NewMemoryLimiter(0, time.Hour), dispatcher, o.notifier, Options{
			Policy:           fraud.Policy{Low: 0.35, High: 0.70},
			Normalizer:       fraud.Normalizer{MaxTokenAge: 8760 * time.Hour, GeoScaleKM: 500, VelocityCap: 1000, OffenseCap: 5},
			OffenseWindow:    720 * time.Hour,
			VerifierEnabled:  o.enabled,
			VerifierFailOpen: o.failOpen,
		})

	return &testEnv{repo: repo, engine: eng}
}

// seedToken crea un token Active y retorna su hash.
func (e *testEnv) seedToken(t *testing.T, expiresAt *time.Time) (tokenID, hash string) {
	t.Helper()
	secret, err := seal.GenerateSecret()
	require.NoError(t, err)
	tok := &core.Token{
		ID:              uuid.NewString(),
		SecretHash:      seal.HashSecret(secret),
		ProductRef:      "sku-100",
		BatchRef:        "B-001",
		ManufacturerRef: "acme",
		State:           core.StateActive,
		IssuedAt:        time.Now().UTC().Add(-time.Hour),
		ExpiresAt:       expiresAt,
	}
	require.NoError(t, e.repo.CreateBatch(context.Background(), []*core.Token{tok}))
	return tok.ID, tok.SecretHash
}

func TestValidate_AuthenticHappyPath(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	tokenID, hash := env.seedToken(t, nil)

	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeAuthentic, res.Outcome)
	require.NotNil(t, res.RiskScore)
	require.InDelta(t, 0.0, *res.RiskScore, 1e-9)
	require.Equal(t, core.StateValidated, res.Token.State)
	require.Equal(t, int64(10), res.RewardPoints)

	// La transición quedó durable y el ledger tiene la entrada terminal.
	fresh, err := env.repo.FetchByID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, core.StateValidated, fresh.State)
	require.NotNil(t, fresh.ConsumedAt)

	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, core.EventValidated, entries[0].EventType)
	require.Equal(t, "authentic", entries[0].Payload["outcome"])
}

func TestValidate_ReplayRejected(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	tokenID, hash := env.seedToken(t, nil)

	first, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeAuthentic, first.Outcome)

	second, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-2", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeReplay, second.Outcome)
	require.Equal(t, ReasonReplay, second.Reason)
	require.NotNil(t, second.OriginalConsumedAt)
	require.Zero(t, second.RewardPoints)

	// El replay queda en el historial como intento, no como transición.
	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, core.EventValidationAttempted, entries[1].EventType)
	require.Equal(t, true, entries[1].Payload["replay"])
}

func TestValidate_UnknownHash(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()

	res, err := env.engine.Validate(ctx, seal.HashSecret("never-issued"), Request{ActorRef: "shady"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeCounterfeit, res.Outcome)
	require.Equal(t, ReasonUnknownToken, res.Reason)
	require.NotNil(t, res.RiskScore)
	require.Equal(t, 1.0, *res.RiskScore)
	require.Nil(t, res.Token)

	// El intento quedó como anomalía del actor (señal de reincidencia).
	n, err := env.repo.CountAnomalies(ctx, "shady", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestValidate_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	tokenID, hash := env.seedToken(t, nil)

	const n = 16
	results := make([]*Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
		}(i)
	}
	wg.Wait()

	var wins, replays int
	for i, r := range results {
		require.NoError(t, errs[i])
		switch r.Outcome {
		case core.OutcomeAuthentic:
			wins++
		case core.OutcomeReplay:
			replays++
		default:
			t.Fatalf("unexpected outcome %q", r.Outcome)
		}
	}
	require.Equal(t, 1, wins, "exactly one validation must consume the token")
	require.Equal(t, n-1, replays)

	// Una sola entrada terminal en el ledger y una sola fila de reward.
	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	var terminal int
	for _, e := range entries {
		if e.EventType == core.EventValidated {
			terminal++
		}
	}
	require.Equal(t, 1, terminal)

	_, created, err := env.repo.InsertReward(ctx, &core.RewardEntry{
		TokenRef: tokenID, Outcome: core.OutcomeAuthentic, ActorRef: "user-1", Points: 10,
	})
	require.NoError(t, err)
	require.False(t, created, "reward must already exist exactly once")
}

func TestValidate_HighRiskCounterfeit(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	tokenID, hash := env.seedToken(t, nil)

	// Canal con trust 0 y todo el peso en trust: score 1.0 > high.
	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "street-market"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeCounterfeit, res.Outcome)
	require.Equal(t, ReasonHighRisk, res.Reason)
	require.Equal(t, int64(25), res.RewardPoints)

	fresh, err := env.repo.FetchByID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, core.StateReported, fresh.State)

	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, core.EventCounterfeitReported, entries[0].EventType)
}

func TestValidate_SuspiciousBoundary(t *testing.T) {
	// score == high debe clasificar suspicious (límite alto exclusivo).
	o := defaultOpts()
	o.channels = append(o.channels, config.Channel{Ref: "gray", Trust: 0.30}) // distrust 0.70 == high
	env := newTestEnv(t, o)
	ctx := context.Background()
	_, hash := env.seedToken(t, nil)

	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "gray"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeSuspicious, res.Outcome)
	require.Equal(t, core.StateValidated, res.Token.State)
	require.Equal(t, int64(5), res.RewardPoints)
}

func TestValidate_ExternalDenialIsAbsolute(t *testing.T) {
	o := defaultOpts()
	o.enabled = true
	o.verifier = stubVerifier{status: verifier.StatusDenied}
	env := newTestEnv(t, o)
	ctx := context.Background()
	tokenID, hash := env.seedToken(t, nil)

	// Canal perfecto (score 0), pero el verifier niega: counterfeit igual.
	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeCounterfeit, res.Outcome)
	require.Equal(t, ReasonExternalDeny, res.Reason)
	require.False(t, res.Degraded)

	fresh, err := env.repo.FetchByID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, core.StateReported, fresh.State)
}

func TestValidate_VerifierDownFailOpen(t *testing.T) {
	o := defaultOpts()
	o.enabled = true
	o.failOpen = true
	o.verifier = stubVerifier{status: verifier.StatusUnavailable}
	env := newTestEnv(t, o)
	ctx := context.Background()
	_, hash := env.seedToken(t, nil)

	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeAuthentic, res.Outcome)
	require.True(t, res.Degraded, "fail-open decisions must be flagged as degraded")
}

func TestValidate_VerifierDownFailClosed(t *testing.T) {
	o := defaultOpts()
	o.enabled = true
	o.failOpen = false
	o.verifier = stubVerifier{status: verifier.StatusUnavailable}
	env := newTestEnv(t, o)
	ctx := context.Background()
	_, hash := env.seedToken(t, nil)

	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeCounterfeit, res.Outcome)
	require.Equal(t, ReasonVerifierDown, res.Reason)
}

func TestValidate_ExpiredToken(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)
	tokenID, hash := env.seedToken(t, &past)

	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeExpired, res.Outcome)
	require.Equal(t, ReasonExpired, res.Reason)
	require.Zero(t, res.RewardPoints)

	// La expiración se materializó con su entrada de status.
	fresh, err := env.repo.FetchByID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, core.StateExpired, fresh.State)

	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, core.EventStatusUpdated, entries[0].EventType)
}

func TestValidate_ExpiredTokenRescanned(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)
	tokenID, hash := env.seedToken(t, &past)

	first, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeExpired, first.Outcome)

	// Un token vencido que nunca se consumió no es replay: cada re-scan
	// repite expired, sin anotar intentos en el historial.
	second, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-2", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeExpired, second.Outcome)
	require.Equal(t, ReasonExpired, second.Reason)

	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, core.EventStatusUpdated, entries[0].EventType)
}

func TestReport_ActiveTokenConsumed(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	tokenID, hash := env.seedToken(t, nil)

	res, err := env.engine.Report(ctx, hash, "reporter-1", "obvious fake packaging")
	require.NoError(t, err)
	require.True(t, res.TokenFound)
	require.False(t, res.Consumed)
	require.NotEmpty(t, res.ReportID)

	fresh, err := env.repo.FetchByID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, core.StateReported, fresh.State)

	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, core.EventCounterfeitReported, entries[0].EventType)
	require.Equal(t, true, entries[0].Payload["manual"])
	require.Equal(t, false, entries[0].Payload["post_consumption"])
}

func TestReport_AfterConsumptionOnlyAppends(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()
	tokenID, hash := env.seedToken(t, nil)

	_, err := env.engine.Validate(ctx, hash, Request{ActorRef: "user-1", ChannelRef: "retail-ok"})
	require.NoError(t, err)

	res, err := env.engine.Report(ctx, hash, "reporter-1", "bought it later, looks fake")
	require.NoError(t, err)
	require.True(t, res.TokenFound)
	require.True(t, res.Consumed)

	// El estado no cambia: el reporte solo anexa evidencia.
	fresh, err := env.repo.FetchByID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, core.StateValidated, fresh.State)

	entries, err := env.repo.History(ctx, tokenID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, true, entries[1].Payload["post_consumption"])
}

func TestReport_UnknownHashRecordsAnomaly(t *testing.T) {
	env := newTestEnv(t, defaultOpts())
	ctx := context.Background()

	res, err := env.engine.Report(ctx, seal.HashSecret("bogus"), "reporter-1", "")
	require.NoError(t, err)
	require.False(t, res.TokenFound)
	require.NotEmpty(t, res.ReportID)

	n, err := env.repo.CountAnomalies(ctx, "reporter-1", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestValidate_PriorOffensesRaiseScore(t *testing.T) {
	// Peso repartido entre trust y offense: las anomalías previas del actor
	// deben empujar el score por encima del threshold bajo.
	o := defaultOpts()
	o.weights = fraud.Weights{Trust: 0.5, Offense: 0.5}
	env := newTestEnv(t, o)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.engine.Validate(ctx, seal.HashSecret(uuid.NewString()), Request{ActorRef: "repeat-offender"})
		require.NoError(t, err)
	}

	_, hash := env.seedToken(t, nil)
	res, err := env.engine.Validate(ctx, hash, Request{ActorRef: "repeat-offender", ChannelRef: "retail-ok"})
	require.NoError(t, err)
	// offense saturada (5/5) * 0.5 = 0.5 > low: suspicious, no counterfeit.
	require.Equal(t, core.OutcomeSuspicious, res.Outcome)
	require.InDelta(t, 0.5, *res.RiskScore, 1e-9)
}
