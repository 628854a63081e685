package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// TokenID crea un campo para el ID del token.
func TokenID(v string) zap.Field {
	return zap.String("token_id", v)
}

// BatchRef crea un campo para la referencia de batch.
func BatchRef(v string) zap.Field {
	return zap.String("batch_ref", v)
}

// ProductRef crea un campo para la referencia de producto.
func ProductRef(v string) zap.Field {
	return zap.String("product_ref", v)
}

// ActorRef crea un campo para el actor que ejecuta la validación.
func ActorRef(v string) zap.Field {
	return zap.String("actor_ref", v)
}

// ChannelRef crea un campo para el canal de distribución.
func ChannelRef(v string) zap.Field {
	return zap.String("channel_ref", v)
}

// Outcome crea un campo para el resultado de una validación.
func Outcome(v string) zap.Field {
	return zap.String("outcome", v)
}

// RiskScore crea un campo para el score de fraude.
func RiskScore(v float64) zap.Field {
	return zap.Float64("risk_score", v)
}

// EventType crea un campo para el tipo de evento del ledger.
func EventType(v string) zap.Field {
	return zap.String("event_type", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (controller, service, repository).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// ID crea un campo genérico para un ID.
func ID(v string) zap.Field {
	return zap.String("id", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
