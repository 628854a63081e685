// Package fraud implementa el scorer de riesgo: combinación explicable de
// señales débiles normalizadas a [0,1] vía suma ponderada, más el policy de
// thresholds que clasifica el score en un resultado.
package fraud

import (
	"fmt"
	"math"
	"time"
)

// Signals son las cinco señales ya normalizadas a [0,1].
// Valores más altos indican mayor riesgo.
type Signals struct {
	AgeAnomaly  float64 // anomalía de tiempo desde emisión
	GeoDistance float64 // distancia al punto de distribución esperado
	Velocity    float64 // validaciones por ventana del mismo actor
	Distrust    float64 // 1 - trust del canal
	Offense     float64 // reincidencia del actor
}

// Weights pondera cada señal. Deben ser no-negativos y sumar 1.
type Weights struct {
	Age      float64
	Geo      float64
	Velocity float64
	Trust    float64
	Offense  float64
}

// Validate verifica no-negatividad y suma 1 (tolerancia 1e-9).
func (w Weights) Validate() error {
	for _, f := range []float64{w.Age, w.Geo, w.Velocity, w.Trust, w.Offense} {
		if f < 0 {
			return fmt.Errorf("fraud: weights must be non-negative")
		}
	}
	if sum := w.Age + w.Geo + w.Velocity + w.Trust + w.Offense; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("fraud: weights must sum to 1, got %v", sum)
	}
	return nil
}

// Scorer produce un risk score en [0,1] a partir de señales normalizadas.
// Debe ser puro: determinístico y sin efectos.
type Scorer interface {
	Score(sig Signals) float64
}

// WeightedScorer es el scorer de referencia: suma ponderada.
// Con pesos no-negativos el score es monótono en cada señal.
type WeightedScorer struct {
	W Weights
}

func NewWeightedScorer(w Weights) (*WeightedScorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &WeightedScorer{W: w}, nil
}

func (s *WeightedScorer) Score(sig Signals) float64 {
	score := s.W.Age*clamp01(sig.AgeAnomaly) +
		s.W.Geo*clamp01(sig.GeoDistance) +
		s.W.Velocity*clamp01(sig.Velocity) +
		s.W.Trust*clamp01(sig.Distrust) +
		s.W.Offense*clamp01(sig.Offense)
	return clamp01(score)
}

// Risk clasifica un score según el policy de thresholds.
type Risk string

const (
	RiskAuthentic   Risk = "authentic"
	RiskSuspicious  Risk = "suspicious"
	RiskCounterfeit Risk = "counterfeit"
)

// Policy son los thresholds de decisión. Vienen de configuración.
type Policy struct {
	Low  float64
	High float64
}

// Classify aplica el policy: score > High es counterfeit, (Low, High] es
// suspicious (aceptado pero marcado), <= Low es authentic. El límite alto es
// exclusivo: score == High clasifica suspicious.
func (p Policy) Classify(score float64) Risk {
	switch {
	case score > p.High:
		return RiskCounterfeit
	case score > p.Low:
		return RiskSuspicious
	default:
		return RiskAuthentic
	}
}

// Normalizer convierte observaciones crudas en Signals, con las escalas de
// saturación configuradas.
type Normalizer struct {
	MaxTokenAge time.Duration // edad que satura AgeAnomaly en 1
	GeoScaleKM  float64       // distancia que satura GeoDistance en 1
	VelocityCap int           // hits por ventana que saturan Velocity en 1
	OffenseCap  int           // anomalías que saturan Offense en 1
}

// Observation son los datos crudos recolectados por el engine para un intento.
type Observation struct {
	TokenAge      time.Duration
	DistanceKM    float64
	VelocityHits  int64
	ChannelTrust  float64 // [0,1], externo
	PriorOffenses int64
}

func (n Normalizer) Normalize(o Observation) Signals {
	return Signals{
		AgeAnomaly:  ratio(o.TokenAge.Hours(), n.MaxTokenAge.Hours()),
		GeoDistance: ratio(o.DistanceKM, n.GeoScaleKM),
		Velocity:    ratio(float64(o.VelocityHits), float64(n.VelocityCap)),
		Distrust:    clamp01(1 - o.ChannelTrust),
		Offense:     ratio(float64(o.PriorOffenses), float64(n.OffenseCap)),
	}
}

func ratio(v, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return clamp01(v / scale)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
