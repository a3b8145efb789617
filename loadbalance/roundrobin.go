package loadbalance

import (
	"fmt"
	"sync/atomic"
)

// RoundRobinBalancer distributes placements evenly across all candidates in
// order, using an atomic counter for lock-free, goroutine-safe selection.
//
// This is the acceptor's default: every worker should receive roughly the
// same number of connection pairs over time, regardless of how long any one
// pair lives.
type RoundRobinBalancer struct {
	counter int64
}

func (b *RoundRobinBalancer) Pick(candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("loadbalance: no candidates available")
	}
	n := atomic.AddInt64(&b.counter, 1)
	return int(n % int64(len(candidates))), nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
