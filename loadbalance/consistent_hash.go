package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
)

// ConsistentHashBalancer maps keys to candidates using a hash ring, so the
// same key always lands on the same upstream (until the ring changes). This
// only matters once discovery.Discovery reports more than one upstream and a
// session needs cache affinity across reconnects keyed on something stable
// like the client's username; a single static upstream has no use for it.
//
// Like the reference implementation, Pick takes a key rather than the
// candidate list, so it does not implement Balancer directly — callers
// populate the ring with Add once and then Pick by key as many times as
// they like.
type ConsistentHashBalancer struct {
	replicas int
	ring     []uint32
	nodes    map[uint32]Candidate
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per
// candidate, which in practice is enough to keep load roughly even across a
// small number of real nodes.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]Candidate),
	}
}

// Add places a candidate onto the ring with its virtual nodes.
func (b *ConsistentHashBalancer) Add(c Candidate) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", c.Addr, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = c
	}
	sort.Slice(b.ring, func(i, j int) bool { return b.ring[i] < b.ring[j] })
}

// Pick finds the candidate responsible for key: hash it, then find the
// first ring node at or past that hash, wrapping around to the first node
// if the hash is past every node.
func (b *ConsistentHashBalancer) Pick(key string) (Candidate, error) {
	if len(b.ring) == 0 {
		return Candidate{}, fmt.Errorf("loadbalance: hash ring is empty")
	}
	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool { return b.ring[i] >= hash })
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
