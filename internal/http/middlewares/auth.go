package middlewares

import (
	"net/http"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/trueseal/internal/http/errors"
	"github.com/dropDatabas3/trueseal/internal/security/apikey"
)

// =================================================================================
// AUTHENTICATION MIDDLEWARES
// =================================================================================

// JWTConfig son los parámetros de validación de bearer tokens HS256.
type JWTConfig struct {
	Secret string
	Issuer string
}

func parseBearer(cfg JWTConfig, raw string) (jwtv5.MapClaims, error) {
	claims := jwtv5.MapClaims{}
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(cfg.Issuer))
	}
	tok, err := jwtv5.ParseWithClaims(raw, claims, func(t *jwtv5.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwtv5.ErrTokenUnverifiable
	}
	return claims, nil
}

func claimString(claims jwtv5.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// RequireAuth valida Authorization: Bearer <JWT> y guarda el actor (sub) y el
// rol en el contexto. Si el token es inválido o no está presente, responde 401.
func RequireAuth(cfg JWTConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := parseBearer(cfg, raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="`+err.Error()+`"`)
				errors.WriteError(w, errors.ErrTokenInvalid.WithDetail(err.Error()))
				return
			}

			ctx := r.Context()
			if sub := claimString(claims, "sub"); sub != "" {
				ctx = WithActor(ctx, sub)
			}
			if role := claimString(claims, "role"); role != "" {
				ctx = WithRole(ctx, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth intenta validar el bearer token pero NO falla si no está
// presente o es inválido. El endpoint público de validación acepta scans
// anónimos; el actor autenticado solo mejora la señal y habilita recompensas.
func OptionalAuth(cfg JWTConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := parseBearer(cfg, raw)
			if err != nil {
				// Token inválido pero opcional, continuar anónimo
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if sub := claimString(claims, "sub"); sub != "" {
				ctx = WithActor(ctx, sub)
			}
			if role := claimString(claims, "role"); role != "" {
				ctx = WithRole(ctx, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminKey exige X-Admin-API-Key válida contra el hash bcrypt
// configurado. Protege las rutas /v1/admin/*.
func RequireAdminKey(keyHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get("X-Admin-API-Key"))
			if !apikey.Verify(keyHash, key) {
				errors.WriteError(w, errors.ErrAdminKeyInvalid)
				return
			}
			ctx := WithRole(r.Context(), "admin")
			if GetActor(ctx) == "" {
				ctx = WithActor(ctx, "admin-key")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
