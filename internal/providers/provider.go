// Package providers lists the ERC-20 holdings of an address through token
// indexers, falling back to direct balanceOf reads.
package providers

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// ErrAllFailed is returned when every provider in the registry fails.
var ErrAllFailed = errors.New("all providers failed")

// Holding is a non-zero ERC-20 balance.
type Holding struct {
	Token   contract.TokenInfo
	Balance *big.Int
	Spam    bool    // flagged by the indexer
	Logo    string  // may be empty
	USD     float64 // valuation; meaningful only when Priced
	Priced  bool
}

// Amount formats the balance in whole tokens.
func (h Holding) Amount() string {
	return chain.FormatUnits(h.Balance, h.Token.Decimals)
}

// Provider lists the token holdings of an address.
type Provider interface {
	Name() string
	GetHoldings(ctx context.Context, owner common.Address) ([]Holding, error)
}

// Registry tries providers in order and returns the first successful result.
type Registry struct {
	providers []Provider
}

// New creates a Registry from an ordered list of providers.
func New(ps ...Provider) *Registry {
	return &Registry{providers: ps}
}

// Result carries the holdings and the provider that supplied them.
type Result struct {
	Holdings []Holding
	Source   string
	Warnings []string // non-fatal provider errors
}

// GetHoldings tries each provider in order and returns the first answer,
// empty or not. Failures before it are kept as warnings.
func (r *Registry) GetHoldings(ctx context.Context, owner common.Address) (*Result, error) {
	res := &Result{}
	for _, p := range r.providers {
		hs, err := p.GetHoldings(ctx, owner)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		res.Holdings = sortHoldings(nonZero(hs))
		res.Source = p.Name()
		return res, nil
	}
	return res, fmt.Errorf("%w: %s", ErrAllFailed, strings.Join(res.Warnings, "; "))
}

// Names returns the names of all registered providers (for display).
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

func nonZero(hs []Holding) []Holding {
	out := hs[:0:0]
	for _, h := range hs {
		if h.Balance != nil && h.Balance.Sign() > 0 {
			out = append(out, h)
		}
	}
	return out
}

func sortHoldings(hs []Holding) []Holding {
	sort.SliceStable(hs, func(i, j int) bool {
		return strings.ToLower(hs[i].Token.Symbol) < strings.ToLower(hs[j].Token.Symbol)
	})
	return hs
}

func hexBigInt(h string) (*big.Int, bool) {
	h = strings.TrimPrefix(h, "0x")
	if h == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(h, 16)
}

func decimalBigInt(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}
