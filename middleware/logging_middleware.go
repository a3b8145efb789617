package middleware

import (
	"context"
	"log"
	"net"
	"time"
)

// LoggingMiddleware records how long placement took for each accepted
// connection and logs the error, if any.
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, clientConn net.Conn) error {
			start := time.Now()
			err := next(ctx, clientConn)
			log.Printf("acceptor: placed %s in %s", clientConn.RemoteAddr(), time.Since(start))
			if err != nil {
				log.Printf("acceptor: %s: %v", clientConn.RemoteAddr(), err)
			}
			return err
		}
	}
}
