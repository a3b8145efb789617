// Package middleware implements an onion-model wrapper chain around the
// acceptor's per-connection placement step: resolve an upstream, dial it,
// and hand the pair to a worker. Cross-cutting concerns (logging around
// that step, bounding how long it may take, retrying a flaky dial) wrap it
// without the acceptor needing to know they exist.
//
// Onion execution order, same shape as a request/response middleware chain
// but over "place this accepted connection" instead of "answer this RPC":
//
//	Chain(A, B, C)(handler)  →  A(B(C(handler)))
//	before: A → B → C → handler
//	after:  handler → C → B → A
package middleware

import (
	"context"
	"net"
)

// HandlerFunc resolves an upstream, dials it, and places the resulting
// pair onto a worker for clientConn. It returns whatever error occurred
// along the way; the acceptor closes clientConn on a non-nil error.
type HandlerFunc func(ctx context.Context, clientConn net.Conn) error

// Middleware wraps a HandlerFunc with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so the first one given is the outermost layer:
// its pre-processing runs first and its post-processing runs last.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
