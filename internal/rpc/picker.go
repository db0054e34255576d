// Package rpc picks a node endpoint for the configured chain.
package rpc

import (
	"errors"
	"sync"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
)

// Picker selects an endpoint from check results. It is safe for concurrent use.
type Picker struct {
	algo Algorithm

	mu   sync.Mutex
	next int
}

// NewPicker creates a new Picker with the given algorithm.
func NewPicker(algo Algorithm) *Picker {
	if algo == "" {
		algo = AlgorithmFastest
	}
	return &Picker{algo: algo}
}

// Pick selects an endpoint according to the algorithm. Endpoints that failed
// their check or report another chain are never picked.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	usable := make([]*Endpoint, 0, len(endpoints))
	for i := range endpoints {
		if endpoints[i].Usable() {
			usable = append(usable, &endpoints[i])
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoHealthyRPC
	}

	switch p.algo {
	case AlgorithmFailover:
		return usable[0], nil
	case AlgorithmRoundRobin:
		p.mu.Lock()
		defer p.mu.Unlock()
		e := usable[p.next%len(usable)]
		p.next = (p.next + 1) % len(usable)
		return e, nil
	default:
		return fastest(usable), nil
	}
}

// fastest returns the lowest-latency endpoint among those within
// staleBlockThreshold of the highest block seen.
func fastest(usable []*Endpoint) *Endpoint {
	var best uint64
	for _, e := range usable {
		best = max(best, e.BlockNumber)
	}
	var winner *Endpoint
	for _, e := range usable {
		if best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if winner == nil || e.Latency < winner.Latency {
			winner = e
		}
	}
	return winner
}
