package fraud

import (
	"testing"
	"time"
)

func refWeights() Weights {
	return Weights{Age: 0.15, Geo: 0.20, Velocity: 0.25, Trust: 0.20, Offense: 0.20}
}

func TestWeights_Validate(t *testing.T) {
	if err := refWeights().Validate(); err != nil {
		t.Fatalf("reference weights should validate: %v", err)
	}
	bad := Weights{Age: 0.5, Geo: 0.6}
	if err := bad.Validate(); err == nil {
		t.Fatalf("weights summing to 1.1 should fail")
	}
	neg := Weights{Age: -0.1, Geo: 0.5, Velocity: 0.3, Trust: 0.2, Offense: 0.1}
	if err := neg.Validate(); err == nil {
		t.Fatalf("negative weight should fail")
	}
}

func TestWeightedScorer_Monotonic(t *testing.T) {
	s, err := NewWeightedScorer(refWeights())
	if err != nil {
		t.Fatal(err)
	}

	base := Signals{AgeAnomaly: 0.3, GeoDistance: 0.3, Velocity: 0.3, Distrust: 0.3, Offense: 0.3}
	baseline := s.Score(base)

	// Subir cualquier señal individual nunca debe bajar el score.
	bumps := []func(Signals) Signals{
		func(x Signals) Signals { x.AgeAnomaly = 0.9; return x },
		func(x Signals) Signals { x.GeoDistance = 0.9; return x },
		func(x Signals) Signals { x.Velocity = 0.9; return x },
		func(x Signals) Signals { x.Distrust = 0.9; return x },
		func(x Signals) Signals { x.Offense = 0.9; return x },
	}
	for i, bump := range bumps {
		if got := s.Score(bump(base)); got < baseline {
			t.Fatalf("signal %d: score decreased from %v to %v", i, baseline, got)
		}
	}
}

func TestWeightedScorer_Deterministic(t *testing.T) {
	s, _ := NewWeightedScorer(refWeights())
	sig := Signals{AgeAnomaly: 0.11, GeoDistance: 0.22, Velocity: 0.33, Distrust: 0.44, Offense: 0.55}
	a, b := s.Score(sig), s.Score(sig)
	if a != b {
		t.Fatalf("scorer is not deterministic: %v != %v", a, b)
	}
	if a < 0 || a > 1 {
		t.Fatalf("score out of range: %v", a)
	}
}

func TestWeightedScorer_ClampsSignals(t *testing.T) {
	s, _ := NewWeightedScorer(refWeights())
	sig := Signals{AgeAnomaly: 5, GeoDistance: 5, Velocity: 5, Distrust: 5, Offense: 5}
	if got := s.Score(sig); got != 1 {
		t.Fatalf("saturated signals should score exactly 1, got %v", got)
	}
}

func TestPolicy_Boundaries(t *testing.T) {
	p := Policy{Low: 0.35, High: 0.70}

	cases := []struct {
		score float64
		want  Risk
	}{
		{0.0, RiskAuthentic},
		{0.35, RiskAuthentic},  // límite bajo inclusivo hacia authentic
		{0.351, RiskSuspicious},
		{0.70, RiskSuspicious}, // score == high es suspicious, no counterfeit
		{0.701, RiskCounterfeit},
		{1.0, RiskCounterfeit},
	}
	for _, c := range cases {
		if got := p.Classify(c.score); got != c.want {
			t.Fatalf("Classify(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestPolicy_ExactHighFromSignals(t *testing.T) {
	// Contexto armado para producir score == High exacto: todas las señales
	// en el mismo valor producen score = valor (los pesos suman 1).
	s, _ := NewWeightedScorer(refWeights())
	p := Policy{Low: 0.35, High: 0.70}
	sig := Signals{AgeAnomaly: 0.70, GeoDistance: 0.70, Velocity: 0.70, Distrust: 0.70, Offense: 0.70}
	score := s.Score(sig)
	if got := p.Classify(score); got != RiskSuspicious {
		t.Fatalf("score %v at the high threshold must classify suspicious, got %v", score, got)
	}
}

func TestNormalizer(t *testing.T) {
	n := Normalizer{
		MaxTokenAge: 100 * time.Hour,
		GeoScaleKM:  500,
		VelocityCap: 20,
		OffenseCap:  5,
	}
	sig := n.Normalize(Observation{
		TokenAge:      50 * time.Hour,
		DistanceKM:    250,
		VelocityHits:  10,
		ChannelTrust:  0.8,
		PriorOffenses: 100, // satura
	})
	if sig.AgeAnomaly != 0.5 || sig.GeoDistance != 0.5 || sig.Velocity != 0.5 {
		t.Fatalf("unexpected normalization: %+v", sig)
	}
	if diff := sig.Distrust - 0.2; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("distrust should be 1-trust, got %v", sig.Distrust)
	}
	if sig.Offense != 1 {
		t.Fatalf("offense should saturate at 1, got %v", sig.Offense)
	}
}

func TestHaversineKM(t *testing.T) {
	// Buenos Aires -> Montevideo, ~205km
	d := HaversineKM(-34.6037, -58.3816, -34.9011, -56.1645)
	if d < 180 || d < 0 || d > 230 {
		t.Fatalf("unexpected distance: %v", d)
	}
	if HaversineKM(10, 20, 10, 20) != 0 {
		t.Fatalf("distance to self should be 0")
	}
}
