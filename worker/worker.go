// Package worker implements the long-lived connection owner: each Worker
// receives freshly accepted connection pairs over an inbox channel and pumps
// both directions of every pair it owns for that pair's entire lifetime.
//
// This generalizes the reference server's accept/dispatch loop (one
// goroutine per accepted net.Conn, for the lifetime of that one connection)
// to a fixed-size pool of long-lived workers, matching the proxy's
// one-pair-per-worker-pair-of-goroutines model from SPEC_FULL.md §4.7: the
// acceptor does the round-robin placement, a Worker just drains its inbox
// and starts pumping.
package worker

import (
	"context"
	"log"

	"mcproxy/conn"
	"mcproxy/dispatch"
	"mcproxy/pipeline"
)

// DefaultInboxCapacity is the default bound on a Worker's pending-pair
// channel, matching the reference implementation's sync_channel(1000): a
// worker falling behind on placements applies backpressure to the acceptor
// rather than growing an unbounded queue.
const DefaultInboxCapacity = 1000

// Worker owns a subset of the proxy's active connection pairs. Once started
// with Run, it pulls pairs off its inbox and spawns one goroutine per
// direction to pump them against the shared dispatch.Registry until either
// leg closes.
type Worker struct {
	id    int
	inbox chan *conn.Pair
	reg   *dispatch.Registry
}

// New creates a Worker with the given id (used only for logging) and inbox
// capacity. Pass 0 to use DefaultInboxCapacity.
func New(id int, reg *dispatch.Registry, inboxCapacity int) *Worker {
	if inboxCapacity <= 0 {
		inboxCapacity = DefaultInboxCapacity
	}
	return &Worker{
		id:    id,
		inbox: make(chan *conn.Pair, inboxCapacity),
		reg:   reg,
	}
}

// Inbox returns the channel the acceptor sends newly placed pairs on.
func (w *Worker) Inbox() chan<- *conn.Pair {
	return w.inbox
}

// Run drains the inbox until ctx is canceled (or the inbox is closed),
// starting a pump loop for each pair it receives. It returns as soon as ctx
// is done, without waiting for pairs it already started: their pump loops
// do not observe ctx, and keep running until either leg's ShouldClose is set
// and the pair's sockets are closed. ctx cancellation only stops accepting
// *new* pairs.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pair, ok := <-w.inbox:
			if !ok {
				return
			}
			w.own(pair)
		}
	}
}

// own starts the two per-direction pump loops for a newly placed pair.
func (w *Worker) own(pair *conn.Pair) {
	go w.pumpLoop(pair, pair.Client, pair.Server)
	go w.pumpLoop(pair, pair.Server, pair.Client)
}

// pumpLoop repeatedly calls pipeline.Pump for one direction of pair until
// either leg requests a close, then tears down both sockets. Each direction
// gets its own pipeline.Scratch: the two directions run concurrently and
// must not share caching/decompression buffers.
func (w *Worker) pumpLoop(pair *conn.Pair, from, to *conn.Context) {
	scratch := pipeline.NewScratch()
	for !from.ShouldClose() && !to.ShouldClose() {
		if err := pipeline.Pump(from, to, w.reg, scratch); err != nil {
			log.Printf("worker %d: pair %d pump error: %v", w.id, pair.ID, err)
			break
		}
	}
	pair.Close()
}
