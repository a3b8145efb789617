// Package loadbalance provides strategies for distributing work across a
// fixed set of candidates.
//
// Two call sites use it in this proxy: the acceptor spreading freshly
// accepted connection pairs across the worker pool, and (when upstream
// discovery is enabled) choosing which discovered backend address a new
// pair should be dialed against. Both reduce to the same shape — pick one
// of N candidates — so the strategies operate on a plain Candidate slice
// instead of a domain-specific instance type.
package loadbalance

// Candidate is one pickable target: a worker slot or a discovered upstream
// address. Addr is informational (empty for worker candidates); Weight is
// only consulted by WeightedRandomBalancer and defaults to 1 if zero.
type Candidate struct {
	Addr   string
	Weight int
}

// Balancer selects one candidate from the available list. Called on every
// placement decision — implementations must be goroutine-safe.
type Balancer interface {
	// Pick returns the index into candidates of the selected entry.
	Pick(candidates []Candidate) (int, error)

	// Name returns the strategy name (for logging).
	Name() string
}
