// Package trust resuelve canales de distribución: trust score externo [0,1]
// y la ubicación registrada del punto de venta.
package trust

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/trueseal/internal/cache"
	"github.com/dropDatabas3/trueseal/internal/config"
)

// Channel es un punto de distribución registrado.
type Channel struct {
	Ref   string  `json:"ref"`
	Trust float64 `json:"trust"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Lookup resuelve un canal por referencia. Un canal desconocido no es error:
// se retorna el canal default (trust neutro, sin ubicación).
type Lookup interface {
	GetChannel(ctx context.Context, ref string) (Channel, error)
}

// DefaultTrust es el trust asignado a canales no registrados.
const DefaultTrust = 0.5

// StaticLookup sirve los canales declarados en configuración.
type StaticLookup struct {
	channels map[string]Channel
}

func NewStaticLookup(chs []config.Channel) *StaticLookup {
	m := make(map[string]Channel, len(chs))
	for _, c := range chs {
		m[c.Ref] = Channel{Ref: c.Ref, Trust: c.Trust, Lat: c.Lat, Lng: c.Lng}
	}
	return &StaticLookup{channels: m}
}

func (l *StaticLookup) GetChannel(_ context.Context, ref string) (Channel, error) {
	if c, ok := l.channels[ref]; ok {
		return c, nil
	}
	return Channel{Ref: ref, Trust: DefaultTrust}, nil
}

// CachedLookup decora un Lookup con cache (memory o redis).
type CachedLookup struct {
	next  Lookup
	cache cache.Client
	ttl   time.Duration
}

func NewCachedLookup(next Lookup, c cache.Client, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: c, ttl: ttl}
}

func (l *CachedLookup) GetChannel(ctx context.Context, ref string) (Channel, error) {
	key := "channel:" + ref
	if raw, err := l.cache.Get(ctx, key); err == nil {
		var c Channel
		if json.Unmarshal([]byte(raw), &c) == nil {
			return c, nil
		}
	}

	c, err := l.next.GetChannel(ctx, ref)
	if err != nil {
		return Channel{}, err
	}
	if b, err := json.Marshal(c); err == nil {
		// best-effort: un fallo de cache no afecta la resolución
		_ = l.cache.Set(ctx, key, string(b), l.ttl)
	}
	return c, nil
}
