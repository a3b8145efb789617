package middleware

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TimeoutMiddleware bounds how long resolving an upstream, dialing it, and
// placing the pair onto a worker may take. A slow or wedged upstream dial
// shouldn't be able to pin an acceptor goroutine indefinitely.
//
// The placement goroutine itself isn't canceled when the timeout fires —
// only context-aware work inside next (e.g. a discovery.Discover call using
// ctx) stops early. A plain net.Dial ignores ctx and keeps running in the
// background; its eventual result is simply discarded.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, clientConn net.Conn) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- next(ctx, clientConn) }()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return fmt.Errorf("middleware: placing %s timed out after %s", clientConn.RemoteAddr(), timeout)
			}
		}
	}
}
