package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/providers"
	"github.com/Mohsinsiddi/dustvault/internal/quote"
	"github.com/ethereum/go-ethereum/common"
)

const routerDeadline = 20 * time.Minute

// Leg is the swap planned for one holding. Exactly one of Quote and Route
// is set, except on the swapper venue where neither is.
type Leg struct {
	Holding providers.Holding
	Quote   *quote.Quote
	Route   *quote.Route
	MinOut  *big.Int // nil when the venue does not report one
}

// Skip is a holding left out of the sweep.
type Skip struct {
	Holding providers.Holding
	Reason  string
}

// Plan is a priced sweep awaiting execution.
type Plan struct {
	Vault       *account.Handle
	Venue       string
	Target      string
	Legs        []Leg
	Skipped     []Skip
	ExpectedOut *big.Int // sum of quoted outputs; zero for the swapper venue
}

// SweepResult is a confirmed sweep.
type SweepResult struct {
	*batch.Result
	Swept     []common.Address
	Refreshed int // quotes re-fetched at submission
}

// outputToken is the ERC-20 the swaps end in: the stablecoin, or the
// wrapped native token that is unwrapped to ETH.
func (s *Service) outputToken() common.Address {
	a := s.opts.Chain.Assets(s.opts.Mode)
	if s.opts.Target == TargetUSDC {
		return a.Stablecoin
	}
	return a.WrappedNative
}

// buyToken is the quote-side token: ETH uses the aggregator placeholder.
func (s *Service) buyToken() common.Address {
	if s.opts.Target == TargetUSDC {
		return s.opts.Chain.Assets(s.opts.Mode).Stablecoin
	}
	return quote.NativeToken
}

// PlanSweep prices a swap for every holding on the configured venue.
// Holdings without liquidity are skipped, not fatal.
func (s *Service) PlanSweep(ctx context.Context, hs []providers.Holding) (*Plan, error) {
	if len(hs) == 0 {
		return nil, ErrNothingToSweep
	}
	h, err := s.Account(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkVenue(); err != nil {
		return nil, err
	}

	plan := &Plan{Vault: h, Venue: s.opts.Venue, Target: s.opts.Target, ExpectedOut: new(big.Int)}
	out := s.outputToken()
	for _, hd := range hs {
		if hd.Token.Address == out {
			plan.Skipped = append(plan.Skipped, Skip{Holding: hd, Reason: "already the sweep target"})
			continue
		}
		leg, err := s.planLeg(ctx, h, hd)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !errors.Is(err, quote.ErrNoLiquidity) {
				s.log.Warn("quote failed", "token", hd.Token.Symbol, "err", err)
			}
			plan.Skipped = append(plan.Skipped, Skip{Holding: hd, Reason: err.Error()})
			continue
		}
		plan.Legs = append(plan.Legs, *leg)
		switch {
		case leg.Quote != nil:
			plan.ExpectedOut.Add(plan.ExpectedOut, leg.Quote.BuyAmount)
		case leg.Route != nil:
			plan.ExpectedOut.Add(plan.ExpectedOut, leg.Route.AmountOut)
		}
	}
	if len(plan.Legs) == 0 {
		return plan, fmt.Errorf("%w: every holding was skipped", ErrNothingToSweep)
	}
	return plan, nil
}

func (s *Service) checkVenue() error {
	switch s.opts.Venue {
	case VenueZeroEx:
		if s.opts.Quotes == nil {
			return fmt.Errorf("%w: %s", ErrVenueUnavailable, VenueZeroEx)
		}
	case VenueRouter:
		if s.opts.Router == nil {
			return fmt.Errorf("%w: %s", ErrVenueUnavailable, VenueRouter)
		}
	case VenueSwapper:
		if s.opts.Swapper == (common.Address{}) {
			return fmt.Errorf("%w: %s", ErrVenueUnavailable, VenueSwapper)
		}
		if s.opts.Target != TargetETH {
			return fmt.Errorf("%w: swapper only sells for ETH", ErrVenueUnavailable)
		}
	default:
		return fmt.Errorf("%w: unknown venue %q", ErrVenueUnavailable, s.opts.Venue)
	}
	return nil
}

func (s *Service) planLeg(ctx context.Context, h *account.Handle, hd providers.Holding) (*Leg, error) {
	switch s.opts.Venue {
	case VenueZeroEx:
		q, err := s.opts.Quotes.Quote(ctx, quote.Request{
			SellToken:   hd.Token.Address,
			BuyToken:    s.buyToken(),
			SellAmount:  hd.Balance,
			Taker:       h.Address,
			SlippageBps: s.opts.SlippageBps,
		})
		if err != nil {
			return nil, err
		}
		return &Leg{Holding: hd, Quote: q, MinOut: q.MinBuyAmount}, nil
	case VenueRouter:
		r, err := s.opts.Router.Best(ctx, hd.Token.Address, s.outputToken(), hd.Balance)
		if err != nil {
			return nil, err
		}
		return &Leg{Holding: hd, Route: r, MinOut: quote.MinOut(r.AmountOut, s.opts.SlippageBps)}, nil
	default:
		return &Leg{Holding: hd}, nil
	}
}

// swapCalls builds approve+swap for one planned leg.
func (s *Service) swapCalls(leg Leg, recipient common.Address, deadline int64) batch.Batch {
	token, amount := leg.Holding.Token.Address, leg.Holding.Balance
	switch {
	case leg.Quote != nil:
		q := leg.Quote
		return batch.ApproveAndSwap(batch.SwapViaQuote(q.To, q.Data, q.Value, token, q.AllowanceTarget, amount))
	case leg.Route != nil:
		return batch.ApproveAndSwap(batch.SwapViaRouter(
			s.opts.Router.Address(), leg.Route.Path, amount, leg.MinOut, recipient, deadline, s.opts.Target == TargetETH))
	default:
		return batch.ApproveAndSwap(batch.SwapViaSwapper(s.opts.Swapper, token, amount))
	}
}

// ExecuteSweep holds the gate, re-reads every leg's balance, re-fetches any
// quote older than the maximum age, builds one batch from every leg and
// submits it on the routed path.
func (s *Service) ExecuteSweep(ctx context.Context, plan *Plan) (*SweepResult, error) {
	if plan == nil || len(plan.Legs) == 0 {
		return nil, ErrNothingToSweep
	}
	release, err := s.hold(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := s.submitter(plan.Vault)
	if err != nil {
		return nil, err
	}

	refreshed, err := s.settle(ctx, plan)
	if err != nil {
		return nil, err
	}
	if s.guard != nil {
		for i := range plan.Legs {
			q := plan.Legs[i].Quote
			if q == nil {
				continue
			}
			fresh, again, err := s.guard.Fresh(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("refreshing %s quote: %w", plan.Legs[i].Holding.Token.Symbol, err)
			}
			if again {
				refreshed++
				plan.Legs[i].Quote = fresh
				plan.Legs[i].MinOut = fresh.MinBuyAmount
			}
		}
	}

	deadline := s.now().Add(routerDeadline).Unix()
	var b batch.Batch
	swept := make([]common.Address, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		b = append(b, s.swapCalls(leg, plan.Vault.Address, deadline)...)
		swept = append(swept, leg.Holding.Token.Address)
	}

	s.log.Info("sweeping", "vault", plan.Vault.Address.Hex(), "tokens", len(swept),
		"calls", len(b), "path", sub.Path(), "refreshed", refreshed)
	res, err := sub.Submit(ctx, plan.Vault, b)
	if err != nil {
		return nil, err
	}
	return &SweepResult{Result: res, Swept: swept, Refreshed: refreshed}, nil
}

// settle re-reads the vault's balance of every leg. A leg whose balance fell
// is re-planned at the current balance; an emptied leg moves to Skipped.
// It returns the number of legs re-planned.
func (s *Service) settle(ctx context.Context, plan *Plan) (int, error) {
	legs := make([]Leg, 0, len(plan.Legs))
	replanned := 0
	for _, leg := range plan.Legs {
		hd := leg.Holding
		bal, err := contract.BalanceOf(ctx, s.opts.Client, hd.Token.Address, plan.Vault.Address)
		if err != nil {
			return 0, fmt.Errorf("reading %s balance: %w", hd.Token.Symbol, err)
		}
		if bal.Cmp(hd.Balance) >= 0 {
			legs = append(legs, leg)
			continue
		}
		hd.Balance = bal
		if bal.Sign() == 0 {
			plan.Skipped = append(plan.Skipped, Skip{Holding: hd, Reason: "balance is now zero"})
			continue
		}
		s.log.Info("balance changed since planning", "token", hd.Token.Symbol, "was", leg.Holding.Balance, "now", bal)
		fresh, err := s.planLeg(ctx, plan.Vault, hd)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			plan.Skipped = append(plan.Skipped, Skip{Holding: hd, Reason: err.Error()})
			continue
		}
		legs = append(legs, *fresh)
		replanned++
	}
	plan.Legs = legs
	if len(legs) == 0 {
		return 0, fmt.Errorf("%w: balances changed since planning", ErrNothingToSweep)
	}

	plan.ExpectedOut = new(big.Int)
	for _, leg := range legs {
		switch {
		case leg.Quote != nil:
			plan.ExpectedOut.Add(plan.ExpectedOut, leg.Quote.BuyAmount)
		case leg.Route != nil:
			plan.ExpectedOut.Add(plan.ExpectedOut, leg.Route.AmountOut)
		}
	}
	return replanned, nil
}

// Sweep plans and executes in one step.
func (s *Service) Sweep(ctx context.Context, hs []providers.Holding) (*Plan, *SweepResult, error) {
	plan, err := s.PlanSweep(ctx, hs)
	if err != nil {
		return plan, nil, err
	}
	res, err := s.ExecuteSweep(ctx, plan)
	return plan, res, err
}
