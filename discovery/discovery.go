// Package discovery defines the optional upstream resolution interface.
//
// mcproxy normally dials one fixed backend address per acceptor. When an
// operator runs several identical Minecraft server instances behind it
// (e.g. for horizontal scaling of a single logical server), an upstream
// group can instead be resolved dynamically: backends register themselves
// here, and the acceptor discovers the current list and picks one with a
// loadbalance.Balancer for every new client connection.
package discovery

import "context"

// Instance is one dialable upstream backend.
type Instance struct {
	Addr   string // network address, e.g. "10.0.0.4:25565"
	Weight int    // relative capacity, consulted by weighted strategies
}

// Discovery is the interface for upstream registration and resolution. Every
// method takes a context so a caller can bound or cancel the underlying
// network round-trip; Register and Watch additionally use ctx to own the
// lifetime of the background goroutine they start (canceling ctx stops lease
// keepalive / watch delivery instead of leaking it for the life of the
// process). EtcdDiscovery is the production implementation; tests use an
// in-memory fake built directly against this interface.
type Discovery interface {
	// Register adds a backend instance to the named upstream group with a
	// TTL lease, and keeps renewing that lease until ctx is canceled. The
	// instance is removed by a Deregister call, or automatically once the
	// lease lapses, whether after explicit ctx cancellation or after the
	// registering process dies without either.
	Register(ctx context.Context, group string, inst Instance, ttlSeconds int64) error

	// Deregister removes a backend instance from the named group.
	Deregister(ctx context.Context, group string, addr string) error

	// Discover returns every backend currently registered under group.
	Discover(ctx context.Context, group string) ([]Instance, error)

	// Watch returns a channel that emits the updated instance list for
	// group whenever it changes, until ctx is canceled (at which point the
	// channel is closed).
	Watch(ctx context.Context, group string) <-chan []Instance
}
