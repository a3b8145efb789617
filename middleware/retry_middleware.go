package middleware

import (
	"context"
	"log"
	"net"
	"strings"
	"time"
)

// RetryMiddleware retries placement on transient dial errors (connection
// refused, timeout) with exponential backoff. A non-transient error (e.g.
// no discovered instances) returns immediately instead of burning retries
// on something retrying can't fix.
func RetryMiddleware(maxRetries int, baseDelay time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, clientConn net.Conn) error {
			err := next(ctx, clientConn)
			for i := 0; i < maxRetries && err != nil; i++ {
				if !isRetryable(err) {
					return err
				}
				log.Printf("middleware: retry %d placing %s: %v", i+1, clientConn.RemoteAddr(), err)
				time.Sleep(baseDelay * time.Duration(1<<i))
				err = next(ctx, clientConn)
			}
			return err
		}
	}
}

func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused")
}
