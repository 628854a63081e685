package middlewares

import "net/http"

// Middleware decora un http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain compone middlewares de afuera hacia adentro:
// Chain(h, A, B, C) atiende el request como A -> B -> C -> h,
// con A viendo el request primero y la respuesta último.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	// Se envuelve en orden inverso: el primero de la lista queda más afuera.
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ChainFunc es Chain para un http.HandlerFunc suelto.
func ChainFunc(hf http.HandlerFunc, mws ...Middleware) http.Handler {
	return Chain(hf, mws...)
}
