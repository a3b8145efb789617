// Command mcproxy runs a standalone intercepting proxy for the Minecraft
// Java Edition wire protocol. It wires a dispatch.Registry with the three
// state-driving transformers every proxy needs, starts a worker pool sized
// at 2x the available CPUs (ground: original_source crates/proxy/src/lib.rs
// start's thread_count = num_cpus::get() * 2), and runs an acceptor in
// front of it until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"mcproxy/acceptor"
	"mcproxy/conn"
	"mcproxy/discovery"
	"mcproxy/dispatch"
	"mcproxy/loadbalance"
	"mcproxy/middleware"
	"mcproxy/packet"
	"mcproxy/transform"
	"mcproxy/worker"
)

func main() {
	listenAddr := flag.String("listen", ":25577", "address to accept client connections on")
	upstreamAddr := flag.String("upstream", "127.0.0.1:25565", "static backend Minecraft server address")
	etcdEndpoint := flag.String("etcd", "", "etcd endpoint for dynamic upstream discovery; static -upstream is used if empty")
	discoveryGroup := flag.String("discovery-group", "mcproxy", "discovery group name to resolve upstreams from, when -etcd is set")
	workerCount := flag.Int("workers", 2*runtime.NumCPU(), "number of connection-owning workers")
	rateLimit := flag.Float64("accept-rate", 0, "max accepted connections per second; 0 disables the limiter")
	rateBurst := flag.Int("accept-burst", 10, "burst size for -accept-rate")
	placeTimeout := flag.Duration("place-timeout", 5*time.Second, "max time allowed to resolve, dial, and place a connection")
	placeRetries := flag.Int("place-retries", 2, "retries for a transient dial/discovery failure while placing a connection")
	flag.Parse()

	reg := dispatch.New()
	registerCoreTransformers(reg)
	reg.Seal()

	workers := make([]*worker.Worker, *workerCount)
	ctx, cancel := context.WithCancel(context.Background())
	for i := range workers {
		w := worker.New(i, reg, worker.DefaultInboxCapacity)
		workers[i] = w
		go w.Run(ctx)
	}

	a := acceptor.New(workers, &loadbalance.RoundRobinBalancer{}, *upstreamAddr).
		Use(middleware.LoggingMiddleware()).
		Use(middleware.TimeoutMiddleware(*placeTimeout)).
		Use(middleware.RetryMiddleware(*placeRetries, 50*time.Millisecond))
	if *etcdEndpoint != "" {
		disco, err := discovery.NewEtcdDiscovery([]string{*etcdEndpoint})
		if err != nil {
			log.Fatalf("mcproxy: connect to etcd at %s: %v", *etcdEndpoint, err)
		}
		a = a.WithDiscovery(disco, *discoveryGroup, &loadbalance.RoundRobinBalancer{})
	}
	if *rateLimit > 0 {
		a = a.WithRateLimiter(*rateLimit, *rateBurst)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("mcproxy: shutting down")
		a.Shutdown()
		cancel()
	}()

	log.Printf("mcproxy: listening on %s, relaying to %s, %d workers", *listenAddr, *upstreamAddr, *workerCount)
	if err := a.Serve("tcp", *listenAddr); err != nil {
		log.Fatalf("mcproxy: serve: %v", err)
	}
}

// registerCoreTransformers installs the three transformers the proxy cannot
// function without: Handshake and LoginSuccess drive the shared protocol
// state machine, SetCompression adopts the compression threshold both legs
// must honor from that point on. Ground: original_source's register_packets.
func registerCoreTransformers(reg *dispatch.Registry) {
	dispatch.OnPacket(reg, &packet.Handshake{}, func(p *packet.Handshake, pair *conn.Pair) transform.Result {
		pair.SetState(packet.State(p.NextState))
		return transform.Unchanged
	})
	dispatch.OnPacket(reg, &packet.LoginSuccess{}, func(p *packet.LoginSuccess, pair *conn.Pair) transform.Result {
		pair.SetState(packet.Play)
		return transform.Unchanged
	})
	dispatch.OnPacket(reg, &packet.SetCompression{}, func(p *packet.SetCompression, pair *conn.Pair) transform.Result {
		pair.SetCompressionThreshold(p.Threshold)
		return transform.Unchanged
	})
}
