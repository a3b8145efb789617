package acceptor_test

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"mcproxy/acceptor"
	"mcproxy/discovery"
	"mcproxy/dispatch"
	"mcproxy/loadbalance"
	"mcproxy/middleware"
	"mcproxy/worker"
)

// fakeDiscovery is an in-memory discovery.Discovery for tests, avoiding any
// dependency on a real etcd cluster.
type fakeDiscovery struct {
	instances map[string][]discovery.Instance
}

func (f *fakeDiscovery) Register(ctx context.Context, group string, inst discovery.Instance, ttl int64) error {
	f.instances[group] = append(f.instances[group], inst)
	return nil
}
func (f *fakeDiscovery) Deregister(ctx context.Context, group, addr string) error { return nil }
func (f *fakeDiscovery) Discover(ctx context.Context, group string) ([]discovery.Instance, error) {
	return f.instances[group], nil
}
func (f *fakeDiscovery) Watch(ctx context.Context, group string) <-chan []discovery.Instance {
	return make(chan []discovery.Instance)
}

func startUpstream(t *testing.T) (addr string, accepted chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	accepted = make(chan net.Conn, 8)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String(), accepted
}

func TestAcceptorRelaysOnKnownAddress(t *testing.T) {
	upstreamAddr, accepted := startUpstream(t)

	reg := dispatch.New()
	reg.Seal()
	w := worker.New(1, reg, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	a := acceptor.New([]*worker.Worker{w}, &loadbalance.RoundRobinBalancer{}, upstreamAddr)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	proxyAddr := ln.Addr().String()
	ln.Close()

	go a.Serve("tcp", proxyAddr)
	defer a.Shutdown()
	time.Sleep(20 * time.Millisecond)

	client, err := net.Dial("tcp", proxyAddr)
	if err != nil {
		t.Fatalf("dial proxy: %v", err)
	}
	defer client.Close()

	var upstreamConn net.Conn
	select {
	case upstreamConn = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("upstream never saw a connection")
	}
	defer upstreamConn.Close()

	msg := []byte("hello")
	if _, err := client.Write(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, len(msg))
	if _, err := io.ReadFull(upstreamConn, got); err != nil {
		t.Fatalf("upstream read: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("upstream got %q, want %q", got, msg)
	}
}

func TestAcceptorResolvesUpstreamViaDiscovery(t *testing.T) {
	upstreamAddr, accepted := startUpstream(t)

	disco := &fakeDiscovery{instances: map[string][]discovery.Instance{
		"survival": {{Addr: upstreamAddr, Weight: 1}},
	}}

	reg := dispatch.New()
	reg.Seal()
	w := worker.New(1, reg, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	a := acceptor.New([]*worker.Worker{w}, &loadbalance.RoundRobinBalancer{}, "").
		WithDiscovery(disco, "survival", &loadbalance.RoundRobinBalancer{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	proxyAddr := ln.Addr().String()
	ln.Close()

	go a.Serve("tcp", proxyAddr)
	defer a.Shutdown()
	time.Sleep(20 * time.Millisecond)

	client, err := net.Dial("tcp", proxyAddr)
	if err != nil {
		t.Fatalf("dial proxy: %v", err)
	}
	defer client.Close()

	select {
	case c := <-accepted:
		c.Close()
	case <-time.After(time.Second):
		t.Fatal("discovery-resolved upstream never saw a connection")
	}
}

func TestAcceptorRunsThroughMiddlewareChain(t *testing.T) {
	upstreamAddr, accepted := startUpstream(t)

	reg := dispatch.New()
	reg.Seal()
	w := worker.New(1, reg, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	var ran int32
	observe := func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, c net.Conn) error {
			atomic.AddInt32(&ran, 1)
			return next(ctx, c)
		}
	}

	a := acceptor.New([]*worker.Worker{w}, &loadbalance.RoundRobinBalancer{}, upstreamAddr).
		Use(middleware.LoggingMiddleware()).
		Use(observe).
		Use(middleware.TimeoutMiddleware(time.Second))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	proxyAddr := ln.Addr().String()
	ln.Close()

	go a.Serve("tcp", proxyAddr)
	defer a.Shutdown()
	time.Sleep(20 * time.Millisecond)

	client, err := net.Dial("tcp", proxyAddr)
	if err != nil {
		t.Fatalf("dial proxy: %v", err)
	}
	defer client.Close()

	select {
	case c := <-accepted:
		c.Close()
	case <-time.After(time.Second):
		t.Fatal("upstream never saw a connection")
	}

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("expected the middleware chain to run exactly once, ran %d times", ran)
	}
}

func TestAcceptorRateLimiterRejectsBurst(t *testing.T) {
	upstreamAddr, accepted := startUpstream(t)

	reg := dispatch.New()
	reg.Seal()
	w := worker.New(1, reg, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	a := acceptor.New([]*worker.Worker{w}, &loadbalance.RoundRobinBalancer{}, upstreamAddr).
		WithRateLimiter(0.0001, 1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	proxyAddr := ln.Addr().String()
	ln.Close()

	go a.Serve("tcp", proxyAddr)
	defer a.Shutdown()
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		c, err := net.Dial("tcp", proxyAddr)
		if err != nil {
			t.Fatalf("dial proxy: %v", err)
		}
		c.Close()
	}

	select {
	case <-accepted:
	case <-time.After(200 * time.Millisecond):
	}

	select {
	case <-accepted:
		t.Fatal("rate limiter allowed more than the configured burst through to upstream")
	default:
	}
}
