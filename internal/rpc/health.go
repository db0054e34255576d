package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
)

const checkTimeout = 5 * time.Second

// Endpoint is the result of probing one RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     int64
	WantChainID int64 // 0 skips the chain check
	Err         error
}

// Usable reports whether the check succeeded against the expected chain.
func (e Endpoint) Usable() bool {
	return e.Err == nil && (e.WantChainID == 0 || e.ChainID == e.WantChainID)
}

// Check measures latency and head block of url and records the chain id it
// serves. A node on the wrong chain is reported with an error.
func Check(ctx context.Context, url string, wantChainID int64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	ep := Endpoint{URL: url, WantChainID: wantChainID}
	c := chain.NewEVMClient(url)
	ep.Latency, ep.BlockNumber, ep.Err = c.Ping(ctx)
	if ep.Err != nil || wantChainID == 0 {
		return ep
	}
	ep.ChainID, ep.Err = c.ChainID(ctx)
	if ep.Err == nil && ep.ChainID != wantChainID {
		ep.Err = fmt.Errorf("serves chain %d, want %d", ep.ChainID, wantChainID)
	}
	return ep
}

// CheckAll checks every URL in parallel, preserving input order.
func CheckAll(ctx context.Context, urls []string, wantChainID int64) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = Check(ctx, url, wantChainID)
		}()
	}
	wg.Wait()
	return out
}
