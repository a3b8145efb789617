// Package acceptor runs the proxy's listening loop: accept a client
// connection, dial the upstream Minecraft server, and hand the resulting
// pair off to one of a fixed pool of workers in round-robin order.
//
// Ground: original_source crates/proxy/src/lib.rs's start function (accept
// loop, per-connection upstream dial, round-robin thread hand-off) combined
// with the reference server's Serve/Shutdown accept-loop and graceful
// shutdown shape.
package acceptor

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"golang.org/x/time/rate"

	"mcproxy/conn"
	"mcproxy/discovery"
	"mcproxy/loadbalance"
	"mcproxy/middleware"
	"mcproxy/worker"
)

// Acceptor owns the listening socket and the worker pool connections are
// placed onto.
type Acceptor struct {
	workers  []*worker.Worker
	balancer loadbalance.Balancer // places new pairs onto workers

	upstream string // static upstream address; ignored if disco is set

	disco            discovery.Discovery
	group            string
	upstreamBalancer loadbalance.Balancer // picks among discovered instances

	limiter *rate.Limiter // optional; nil means unlimited

	middlewares []middleware.Middleware
	place       middleware.HandlerFunc // built lazily from middlewares, wraps placeConn

	listener net.Listener
	shutdown atomic.Bool
	nextID   atomic.Uint64
}

// New creates an Acceptor that places new pairs across workers using bal,
// dialing the fixed upstream address for every connection.
func New(workers []*worker.Worker, bal loadbalance.Balancer, upstream string) *Acceptor {
	return &Acceptor{
		workers:  workers,
		balancer: bal,
		upstream: upstream,
	}
}

// Use appends a middleware layer around connection placement (resolve
// upstream, dial, hand off to a worker). Middlewares added earlier wrap
// those added later, same ordering as middleware.Chain.
func (a *Acceptor) Use(mw middleware.Middleware) *Acceptor {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithDiscovery switches the upstream address resolution from the fixed
// address passed to New to a dynamically discovered one: every new
// connection calls disco.Discover(group) and picks among the results with
// upstreamBal instead of dialing New's static upstream.
func (a *Acceptor) WithDiscovery(disco discovery.Discovery, group string, upstreamBal loadbalance.Balancer) *Acceptor {
	a.disco = disco
	a.group = group
	a.upstreamBalancer = upstreamBal
	return a
}

// WithRateLimiter guards Accept with a token-bucket limiter: r tokens per
// second, up to burst. A connection arriving with no tokens available is
// rejected (the raw net.Conn is closed) before any upstream dial happens.
func (a *Acceptor) WithRateLimiter(r float64, burst int) *Acceptor {
	a.limiter = rate.NewLimiter(rate.Limit(r), burst)
	return a
}

// Serve listens on network/address and runs the accept loop until Shutdown
// closes the listener.
func (a *Acceptor) Serve(network, address string) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	a.listener = listener
	a.place = middleware.Chain(a.middlewares...)(a.placeConn)

	for {
		clientConn, err := listener.Accept()
		if err != nil {
			if a.shutdown.Load() {
				return nil
			}
			return err
		}
		go a.handle(clientConn)
	}
}

// handle runs clientConn through the middleware chain built in Serve. Any
// failure closes the client's socket; the client sees a dropped connection
// rather than a protocol-level Disconnect, matching the reference
// implementation (a dial failure there simply propagates out of the accept
// loop for that connection attempt).
func (a *Acceptor) handle(clientConn net.Conn) {
	if a.limiter != nil && !a.limiter.Allow() {
		clientConn.Close()
		return
	}

	if err := a.place(context.Background(), clientConn); err != nil {
		log.Printf("acceptor: %s: %v", clientConn.RemoteAddr(), err)
		clientConn.Close()
	}
}

// placeConn resolves an upstream address, dials it, and places the
// resulting pair onto the next worker in round-robin order. It is the
// innermost HandlerFunc the configured middlewares wrap.
func (a *Acceptor) placeConn(ctx context.Context, clientConn net.Conn) error {
	upstream, err := a.resolveUpstream(ctx)
	if err != nil {
		return fmt.Errorf("resolve upstream: %w", err)
	}

	serverConn, err := net.Dial("tcp", upstream)
	if err != nil {
		return fmt.Errorf("dial upstream %s: %w", upstream, err)
	}

	id := a.nextID.Add(1)
	pair := conn.NewPair(id, clientConn, serverConn)

	w, err := a.pickWorker()
	if err != nil {
		pair.Close()
		return fmt.Errorf("pick worker: %w", err)
	}
	w.Inbox() <- pair
	return nil
}

// resolveUpstream returns the address to dial for a new connection: the
// fixed address New was given, or one chosen from the discovery group if
// WithDiscovery was used.
func (a *Acceptor) resolveUpstream(ctx context.Context) (string, error) {
	if a.disco == nil {
		return a.upstream, nil
	}

	instances, err := a.disco.Discover(ctx, a.group)
	if err != nil {
		return "", err
	}
	if len(instances) == 0 {
		return "", fmt.Errorf("acceptor: no instances registered for group %q", a.group)
	}

	candidates := make([]loadbalance.Candidate, len(instances))
	for i, inst := range instances {
		candidates[i] = loadbalance.Candidate{Addr: inst.Addr, Weight: inst.Weight}
	}

	idx, err := a.upstreamBalancer.Pick(candidates)
	if err != nil {
		return "", err
	}
	return candidates[idx].Addr, nil
}

// pickWorker selects the worker a new pair is placed onto, using the same
// Candidate-based balancer abstraction as upstream selection (workers carry
// no address, so Addr is left empty).
func (a *Acceptor) pickWorker() (*worker.Worker, error) {
	candidates := make([]loadbalance.Candidate, len(a.workers))
	idx, err := a.balancer.Pick(candidates)
	if err != nil {
		return nil, err
	}
	return a.workers[idx], nil
}

// Shutdown stops accepting new connections by closing the listener, which
// makes Serve return nil. It does not wait for already-placed pairs to
// finish pumping; those are owned by workers, whose goroutines tear
// themselves down independently once either leg closes.
func (a *Acceptor) Shutdown() error {
	a.shutdown.Store(true)
	if a.listener == nil {
		return nil
	}
	return a.listener.Close()
}
