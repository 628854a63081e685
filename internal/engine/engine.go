// Package engine orquesta la validación de un token: fetch, chequeo de
// estado, scoring de fraude, verificación externa, transición atómica,
// entrada de ledger y despacho de recompensa.
//
// El único punto de exclusión es la transición condicional del store; perder
// esa carrera no es un error: degrada a un rechazo por replay.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/trueseal/internal/fraud"
	"github.com/dropDatabas3/trueseal/internal/metrics"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/rate"
	"github.com/dropDatabas3/trueseal/internal/reward"
	"github.com/dropDatabas3/trueseal/internal/store/core"
	"github.com/dropDatabas3/trueseal/internal/trust"
	"github.com/dropDatabas3/trueseal/internal/verifier"
)

// Request es el contexto de un intento de validación.
type Request struct {
	ActorRef   string
	ChannelRef string
	// Coordenadas del dispositivo; cero/cero significa sin ubicación.
	Lat, Lng          float64
	HasLocation       bool
	DeviceFingerprint string
}

// Reason distingue internamente rechazos que el caller ve iguales.
type Reason string

const (
	ReasonUnknownToken Reason = "unknown token"
	ReasonReplay       Reason = "already consumed"
	ReasonHighRisk     Reason = "risk score above threshold"
	ReasonExternalDeny Reason = "external verifier denied"
	ReasonVerifierDown Reason = "external verifier unavailable"
	ReasonExpired      Reason = "token expired"
)

// Result es el resultado efímero de una validación; no se persiste como
// entidad propia (el ledger es la fuente histórica).
type Result struct {
	Outcome    core.Outcome
	Reason     Reason
	Token      *core.Token
	RiskScore  *float64
	// Degraded marca que el verifier externo no respondió y se decidió solo
	// con el scorer.
	Degraded bool
	// Replay: cuándo se consumió originalmente el token.
	OriginalConsumedAt *time.Time
	// RewardPoints acreditados en esta llamada (0 si no aplica o falló).
	RewardPoints int64
}

// Options son los parámetros de decisión del engine.
type Options struct {
	Policy           fraud.Policy
	Normalizer       fraud.Normalizer
	OffenseWindow    time.Duration
	VerifierEnabled  bool
	VerifierFailOpen bool
}

type Engine struct {
	repo     core.Repository
	scorer   fraud.Scorer
	verifier verifier.Client
	trust    trust.Lookup
	velocity rate.Counter
	rewards  *reward.Dispatcher
	notifier Notifier
	opts     Options
}

// Notifier recibe alertas de counterfeit. Puede ser nil.
type Notifier interface {
	CounterfeitAlert(ctx context.Context, token *core.Token, reason string, score float64)
}

func New(repo core.Repository, scorer fraud.Scorer, v verifier.Client, tl trust.Lookup,
	vel rate.Counter, rw *reward.Dispatcher, n Notifier, opts Options) *Engine {
	if v == nil {
		v = verifier.Disabled{}
	}
	return &Engine{
		repo: repo, scorer: scorer, verifier: v, trust: tl,
		velocity: vel, rewards: rw, notifier: n, opts: opts,
	}
}

// Validate ejecuta el protocolo completo para un secret hash.
// Solo retorna error ante fallas de store previas a cualquier mutación
// (retryables para el caller); los rechazos esperados son Results.
func (e *Engine) Validate(ctx context.Context, secretHash string, req Request) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("engine"), logger.Op("Validate"))

	// 1. Lookup. Un hash desconocido es la señal de counterfeit más fuerte:
	// no hay token que transicionar ni ledger que escribir, pero el intento
	// se registra como anomalía del actor.
	tok, err := e.repo.FetchBySecretHash(ctx, secretHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return e.unknownToken(ctx, secretHash, req), nil
		}
		return nil, fmt.Errorf("engine: token lookup: %w", err)
	}

	// 2. Estado terminal. Expired no es replay: un token vencido que nunca se
	// consumió no es evidencia de fraude, y el re-scan repite el mismo
	// resultado sin re-mutar ni anotar intento.
	if tok.State == core.StateExpired {
		return e.expiredResult(tok), nil
	}
	// Validated/Reported = replay. Rechazo idempotente, sin re-mutación.
	if tok.State.Terminal() {
		return e.rejectReplay(ctx, tok, req), nil
	}

	// 3. Expiración aún no materializada: se concreta acá, una sola vez.
	now := time.Now().UTC()
	if tok.Expired(now) {
		return e.expire(ctx, tok, req), nil
	}

	// 4–5. Scoring y verificación externa en paralelo: ninguno depende del
	// resultado del otro, ambos completan antes de decidir.
	var (
		sig   fraud.Signals
		vstat = verifier.StatusUnavailable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sig, err = e.collectSignals(gctx, tok, req, now)
		return err
	})
	if e.opts.VerifierEnabled {
		g.Go(func() error {
			vstat = e.verifier.Verify(gctx, secretHash)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	score := e.scorer.Score(sig)
	metrics.RiskScore.Observe(score)

	// 6. Decisión.
	outcome, reason, degraded := e.decide(score, vstat)
	log.Debug("decision computed",
		logger.TokenID(tok.ID), logger.RiskScore(score),
		logger.Outcome(string(outcome)), logger.Bool("degraded", degraded))

	// 7. Transición atómica: el único punto de exclusión. Perder la carrera
	// degrada a replay, nunca a error.
	target := core.StateValidated
	if outcome == core.OutcomeCounterfeit {
		target = core.StateReported
	}
	consumed, err := e.repo.Transition(ctx, tok.ID, core.StateActive, target, req.ActorRef)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			metrics.TransitionConflicts.Inc()
			fresh, ferr := e.repo.FetchByID(ctx, tok.ID)
			if ferr != nil {
				return nil, fmt.Errorf("engine: refetch after conflict: %w", ferr)
			}
			if fresh.State == core.StateExpired {
				return e.expiredResult(fresh), nil
			}
			return e.rejectReplay(ctx, fresh, req), nil
		}
		return nil, fmt.Errorf("engine: transition: %w", err)
	}

	// 8. Entrada de ledger con score y contexto. La decisión ya es durable.
	e.appendOutcomeEntry(ctx, consumed, outcome, reason, score, degraded, req)

	// 9. Recompensa: aislada. Un fallo acá nunca revierte la transición ni
	// el ledger; queda pendiente para el retry worker.
	res := &Result{
		Outcome:   outcome,
		Reason:    reason,
		Token:     consumed,
		RiskScore: &score,
		Degraded:  degraded,
	}
	res.RewardPoints = e.dispatchReward(ctx, consumed.ID, outcome, req.ActorRef)

	if outcome == core.OutcomeCounterfeit && e.notifier != nil {
		go e.notifier.CounterfeitAlert(context.WithoutCancel(ctx), consumed, string(reason), score)
	}

	metrics.ValidationsTotal.WithLabelValues(string(outcome)).Inc()
	return res, nil
}

// ─── pasos ───

func (e *Engine) unknownToken(ctx context.Context, secretHash string, req Request) *Result {
	metrics.UnknownTokenAttempts.Inc()
	metrics.ValidationsTotal.WithLabelValues(string(core.OutcomeCounterfeit)).Inc()

	if err := e.repo.RecordAnomaly(ctx, &core.Anomaly{
		SecretHash: secretHash,
		ActorRef:   req.ActorRef,
		ChannelRef: req.ChannelRef,
	}); err != nil {
		logger.From(ctx).Warn("anomaly record failed", logger.Err(err))
	}

	score := 1.0
	return &Result{
		Outcome:   core.OutcomeCounterfeit,
		Reason:    ReasonUnknownToken,
		RiskScore: &score,
	}
}

func (e *Engine) rejectReplay(ctx context.Context, tok *core.Token, req Request) *Result {
	actor := req.ActorRef
	_, err := e.repo.Append(ctx, &core.LedgerEntry{
		TokenRef:  tok.ID,
		EventType: core.EventValidationAttempted,
		ActorRef:  &actor,
		Payload: map[string]any{
			"replay":      true,
			"state":       string(tok.State),
			"channel_ref": req.ChannelRef,
			"device":      req.DeviceFingerprint,
		},
	})
	if err != nil {
		logger.From(ctx).Warn("replay ledger entry failed", logger.TokenID(tok.ID), logger.Err(err))
	}

	metrics.ValidationsTotal.WithLabelValues(string(core.OutcomeReplay)).Inc()
	return &Result{
		Outcome:            core.OutcomeReplay,
		Reason:             ReasonReplay,
		Token:              tok,
		OriginalConsumedAt: tok.ConsumedAt,
	}
}

// expiredResult es el resultado idempotente para un token ya materializado
// como Expired. No escribe ledger: la entrada de status se anotó una sola
// vez al materializar.
func (e *Engine) expiredResult(tok *core.Token) *Result {
	metrics.ValidationsTotal.WithLabelValues(string(core.OutcomeExpired)).Inc()
	return &Result{Outcome: core.OutcomeExpired, Reason: ReasonExpired, Token: tok}
}

func (e *Engine) expire(ctx context.Context, tok *core.Token, req Request) *Result {
	// La expiración se materializa perezosamente. Si otra request gana esta
	// transición, el resultado para este caller no cambia: expired es expired.
	consumed, err := e.repo.Transition(ctx, tok.ID, core.StateActive, core.StateExpired, req.ActorRef)
	switch {
	case err == nil:
		tok = consumed
	case errors.Is(err, core.ErrConflict):
		if fresh, ferr := e.repo.FetchByID(ctx, tok.ID); ferr == nil {
			if fresh.State != core.StateExpired {
				// Otro caller consumió el token antes de que venciera acá: replay.
				return e.rejectReplay(ctx, fresh, req)
			}
			tok = fresh
		}
	default:
		logger.From(ctx).Warn("expire transition failed", logger.TokenID(tok.ID), logger.Err(err))
	}

	actor := req.ActorRef
	if _, err := e.repo.Append(ctx, &core.LedgerEntry{
		TokenRef:  tok.ID,
		EventType: core.EventStatusUpdated,
		ActorRef:  &actor,
		Payload:   map[string]any{"status": string(core.StateExpired)},
	}); err != nil {
		logger.From(ctx).Warn("expiry ledger entry failed", logger.TokenID(tok.ID), logger.Err(err))
	}

	return e.expiredResult(tok)
}

// collectSignals junta las señales crudas y las normaliza. El lookup de canal
// y el conteo de anomalías son lecturas; la única escritura es el hit de
// velocity del actor, que es parte de la señal misma.
func (e *Engine) collectSignals(ctx context.Context, tok *core.Token, req Request, now time.Time) (fraud.Signals, error) {
	ch, err := e.trust.GetChannel(ctx, req.ChannelRef)
	if err != nil {
		logger.From(ctx).Warn("channel lookup failed, using default trust", logger.Err(err))
		ch = trust.Channel{Ref: req.ChannelRef, Trust: trust.DefaultTrust}
	}

	var distanceKM float64
	if req.HasLocation && (ch.Lat != 0 || ch.Lng != 0) {
		distanceKM = fraud.HaversineKM(req.Lat, req.Lng, ch.Lat, ch.Lng)
	}

	var hits int64
	if e.velocity != nil && req.ActorRef != "" {
		if hits, err = e.velocity.Incr(ctx, req.ActorRef); err != nil {
			logger.From(ctx).Warn("velocity counter failed", logger.Err(err))
			hits = 0
		}
	}

	var offenses int64
	if req.ActorRef != "" {
		if offenses, err = e.repo.CountAnomalies(ctx, req.ActorRef, now.Add(-e.opts.OffenseWindow)); err != nil {
			logger.From(ctx).Warn("offense lookup failed", logger.Err(err))
			offenses = 0
		}
	}

	return e.opts.Normalizer.Normalize(fraud.Observation{
		TokenAge:      now.Sub(tok.IssuedAt),
		DistanceKM:    distanceKM,
		VelocityHits:  hits,
		ChannelTrust:  ch.Trust,
		PriorOffenses: offenses,
	}), nil
}

// decide combina el score con el veredicto externo. La negativa externa es
// absoluta; la indisponibilidad aplica el policy fail-open/fail-closed.
func (e *Engine) decide(score float64, vstat verifier.Status) (core.Outcome, Reason, bool) {
	if e.opts.VerifierEnabled {
		switch vstat {
		case verifier.StatusDenied:
			return core.OutcomeCounterfeit, ReasonExternalDeny, false
		case verifier.StatusUnavailable:
			metrics.VerifierUnavailable.Inc()
			if !e.opts.VerifierFailOpen {
				return core.OutcomeCounterfeit, ReasonVerifierDown, false
			}
			// fail-open: se decide solo con el score, anotado como degradado.
			return outcomeFromRisk(e.opts.Policy.Classify(score)), riskReason(e.opts.Policy.Classify(score)), true
		}
	}
	risk := e.opts.Policy.Classify(score)
	return outcomeFromRisk(risk), riskReason(risk), false
}

func outcomeFromRisk(r fraud.Risk) core.Outcome {
	switch r {
	case fraud.RiskCounterfeit:
		return core.OutcomeCounterfeit
	case fraud.RiskSuspicious:
		return core.OutcomeSuspicious
	default:
		return core.OutcomeAuthentic
	}
}

func riskReason(r fraud.Risk) Reason {
	if r == fraud.RiskCounterfeit {
		return ReasonHighRisk
	}
	return ""
}

func (e *Engine) appendOutcomeEntry(ctx context.Context, tok *core.Token, outcome core.Outcome,
	reason Reason, score float64, degraded bool, req Request) {

	et := core.EventValidated
	if outcome == core.OutcomeCounterfeit {
		et = core.EventCounterfeitReported
	}

	payload := map[string]any{
		"outcome":     string(outcome),
		"score":       score,
		"channel_ref": req.ChannelRef,
		"device":      req.DeviceFingerprint,
	}
	if reason != "" {
		payload["reason"] = string(reason)
	}
	if degraded {
		payload["verifier_degraded"] = true
	}
	if req.HasLocation {
		payload["lat"], payload["lng"] = req.Lat, req.Lng
	}

	actor := req.ActorRef
	if _, err := e.repo.Append(ctx, &core.LedgerEntry{
		TokenRef:  tok.ID,
		EventType: et,
		ActorRef:  &actor,
		Payload:   payload,
	}); err != nil {
		// La transición ya es durable; la entrada se reconcilia después.
		logger.From(ctx).Error("outcome ledger entry failed", logger.TokenID(tok.ID), logger.Err(err))
	}
}

func (e *Engine) dispatchReward(ctx context.Context, tokenRef string, outcome core.Outcome, actorRef string) int64 {
	entry, _, err := e.rewards.Credit(ctx, tokenRef, outcome, actorRef)
	if err != nil {
		logger.From(ctx).Warn("reward dispatch failed, parking for retry",
			logger.TokenID(tokenRef), logger.Err(err))
		e.rewards.Park(ctx, &core.PendingReward{
			TokenRef:      tokenRef,
			Outcome:       outcome,
			ActorRef:      actorRef,
			NextAttemptAt: time.Now().UTC().Add(30 * time.Second),
		})
		return 0
	}
	if entry == nil {
		return 0
	}
	return entry.Points
}
