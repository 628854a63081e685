package middlewares

import "context"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyActorRef
	ctxKeyRole
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID retorna el request ID del contexto, o "" si no hay.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithActor guarda la referencia del actor autenticado en el contexto.
func WithActor(ctx context.Context, actorRef string) context.Context {
	return context.WithValue(ctx, ctxKeyActorRef, actorRef)
}

// GetActor retorna el actor autenticado, o "" si el request es anónimo.
func GetActor(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActorRef).(string); ok {
		return v
	}
	return ""
}

// WithRole guarda el rol del actor autenticado en el contexto.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

// GetRole retorna el rol del actor autenticado, o "" si no hay.
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRole).(string); ok {
		return v
	}
	return ""
}
