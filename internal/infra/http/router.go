package http

import (
	"net/http"
)

// Middleware wraps an http.Handler, the standard net/http pattern.
type Middleware func(http.Handler) http.Handler

// Router is the routing surface handlers are registered against. The
// abstraction keeps route registration independent of the underlying
// router implementation.
type Router interface {
	// GET and POST register method handlers. Route-specific middleware
	// is applied in order, first middleware outermost.
	GET(path string, handler http.HandlerFunc, middlewares ...Middleware)
	POST(path string, handler http.HandlerFunc, middlewares ...Middleware)

	// Group registers routes under a shared prefix. Group middleware
	// applies to every route inside.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use adds middleware applying to all subsequently registered routes.
	Use(middlewares ...Middleware)

	// Handler returns the composed http.Handler for the server.
	Handler() http.Handler
}
