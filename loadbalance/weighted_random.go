package loadbalance

import (
	"fmt"
	"math/rand"
)

// WeightedRandomBalancer selects a candidate probabilistically based on its
// weight. A discovered upstream with weight 10 gets roughly 2x the traffic
// of one with weight 5. Useful once discovery.Discovery reports real
// capacity-based weights instead of every upstream being equal.
//
// Algorithm: sum the weights, draw r in [0, total), then walk the list
// subtracting each weight from r until it goes negative.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("loadbalance: no candidates available")
	}

	total := 0
	for _, c := range candidates {
		total += weightOf(c)
	}

	r := rand.Intn(total)
	for i, c := range candidates {
		r -= weightOf(c)
		if r < 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("loadbalance: unexpected fallthrough in weighted selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}

func weightOf(c Candidate) int {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}
