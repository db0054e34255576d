package vault

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/price"
	"github.com/Mohsinsiddi/dustvault/internal/providers"
	"github.com/ethereum/go-ethereum/common"
)

// Portfolio is the holdings of one address split into dust and kept tokens.
type Portfolio struct {
	Owner     common.Address
	Source    string
	Warnings  []string
	Dust      []providers.Holding
	Kept      []providers.Holding
	DustUSD   float64
	FetchedAt time.Time
}

// Tokens lists the dust token addresses.
func (p *Portfolio) Tokens() []common.Address {
	out := make([]common.Address, len(p.Dust))
	for i, h := range p.Dust {
		out[i] = h.Token.Address
	}
	return out
}

// Remove drops tokens from the portfolio ahead of the next refresh.
func (p *Portfolio) Remove(tokens ...common.Address) {
	p.Dust = providers.Without(p.Dust, tokens...)
	p.DustUSD = 0
	for _, h := range p.Dust {
		if h.Priced {
			p.DustUSD += h.USD
		}
	}
}

// Without returns a copy of p with tokens dropped from the dust. p is left
// untouched, so a copy can be handed to another goroutine.
func (p *Portfolio) Without(tokens ...common.Address) *Portfolio {
	next := *p
	next.Warnings = append([]string(nil), p.Warnings...)
	next.Kept = append([]providers.Holding(nil), p.Kept...)
	next.Remove(tokens...)
	return &next
}

// Holdings lists owner's tokens, values them and applies the dust filter.
// Pricing failures are warnings.
func (s *Service) Holdings(ctx context.Context, owner common.Address) (*Portfolio, error) {
	if s.opts.Holdings == nil {
		return nil, errors.New("vault: no holdings providers configured")
	}
	res, err := s.opts.Holdings.GetHoldings(ctx, owner)
	if err != nil {
		return nil, err
	}
	p := &Portfolio{
		Owner:     owner,
		Source:    res.Source,
		Warnings:  res.Warnings,
		FetchedAt: s.now(),
	}

	hs := res.Holdings
	if w := s.price(ctx, hs); w != "" {
		p.Warnings = append(p.Warnings, w)
	}
	p.Dust, p.Kept = s.filter().Apply(hs)
	for _, h := range p.Dust {
		if h.Priced {
			p.DustUSD += h.USD
		}
	}
	return p, nil
}

// VaultHoldings is Holdings for the session's vault.
func (s *Service) VaultHoldings(ctx context.Context) (*Portfolio, error) {
	h, err := s.Account(ctx)
	if err != nil {
		return nil, err
	}
	return s.Holdings(ctx, h.Address)
}

// filter excludes the stablecoin and the sweep target from dust.
func (s *Service) filter() providers.DustFilter {
	assets := s.opts.Chain.Assets(s.opts.Mode)
	exclude := []common.Address{assets.Stablecoin}
	if out := s.outputToken(); out != assets.Stablecoin {
		exclude = append(exclude, out)
	}
	return providers.DustFilter{
		Exclude:     exclude,
		IncludeSpam: s.opts.IncludeSpam,
		MaxUSD:      s.opts.DustMaxUSD,
	}
}

// price fills USD values in place for holdings the indexer did not price.
func (s *Service) price(ctx context.Context, hs []providers.Holding) string {
	if s.opts.Prices == nil || s.opts.Mode == "testnet" {
		return ""
	}
	var need []common.Address
	for _, h := range hs {
		if !h.Priced {
			need = append(need, h.Token.Address)
		}
	}
	if len(need) == 0 {
		return ""
	}
	prices, err := s.opts.Prices.TokenPrices(ctx, s.opts.Chain.Name, need)
	if err != nil {
		if errors.Is(err, price.ErrUnsupportedNetwork) {
			return ""
		}
		s.log.Warn("pricing failed", "err", err)
		return "prices: " + err.Error()
	}
	for i := range hs {
		if hs[i].Priced {
			continue
		}
		if p, ok := prices[hs[i].Token.Address]; ok {
			hs[i].USD = p * tokenAmount(hs[i].Balance, hs[i].Token.Decimals)
			hs[i].Priced = true
		}
	}
	return ""
}

func tokenAmount(raw *big.Int, decimals int) float64 {
	if raw == nil {
		return 0
	}
	f := new(big.Float).SetInt(raw)
	if decimals > 0 {
		f.Quo(f, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)))
	}
	v, _ := f.Float64()
	return v
}
