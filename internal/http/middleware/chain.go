package middleware

import "net/http"

// Middleware represents a HTTP middleware function
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that middleware run in the order given
func Chain(h http.Handler, middleware ...Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
