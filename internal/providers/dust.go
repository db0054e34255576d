package providers

import "github.com/ethereum/go-ethereum/common"

// DustFilter selects the holdings worth sweeping.
type DustFilter struct {
	Exclude     []common.Address // e.g. the stablecoin or the sweep target
	IncludeSpam bool
	MaxUSD      float64 // 0 = no ceiling; unpriced holdings always pass
}

// Apply returns the dust holdings and the excluded ones, preserving order.
// Spam is dropped entirely unless IncludeSpam is set.
func (f DustFilter) Apply(hs []Holding) (dust, kept []Holding) {
	excluded := make(map[common.Address]bool, len(f.Exclude))
	for _, a := range f.Exclude {
		excluded[a] = true
	}
	for _, h := range hs {
		switch {
		case h.Spam && !f.IncludeSpam:
		case excluded[h.Token.Address]:
			kept = append(kept, h)
		case f.MaxUSD > 0 && h.Priced && h.USD > f.MaxUSD:
			kept = append(kept, h)
		default:
			dust = append(dust, h)
		}
	}
	return dust, kept
}

// Without removes the given tokens, used to drop swept holdings before the
// next poll confirms it.
func Without(hs []Holding, tokens ...common.Address) []Holding {
	drop := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		drop[t] = true
	}
	out := make([]Holding, 0, len(hs))
	for _, h := range hs {
		if !drop[h.Token.Address] {
			out = append(out, h)
		}
	}
	return out
}
