package quote

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// Route is a UniswapV2 path and its expected output.
type Route struct {
	Path      []common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

// Router quotes swaps on a UniswapV2-compatible router.
type Router struct {
	caller *contract.Caller
	hops   []common.Address // intermediate tokens tried after the direct pair
}

// NewRouter binds router; hops are the candidate intermediates (wrapped
// native, stablecoin).
func NewRouter(client *chain.EVMClient, router common.Address, hops ...common.Address) *Router {
	return &Router{caller: contract.NewCaller(client, contract.UniswapV2Router, router), hops: hops}
}

// Address is the router contract.
func (r *Router) Address() common.Address { return r.caller.Address() }

// Candidates lists the paths tried for tokenIn -> tokenOut.
func (r *Router) Candidates(tokenIn, tokenOut common.Address) [][]common.Address {
	paths := [][]common.Address{{tokenIn, tokenOut}}
	for _, h := range r.hops {
		if h == (common.Address{}) || h == tokenIn || h == tokenOut {
			continue
		}
		paths = append(paths, []common.Address{tokenIn, h, tokenOut})
	}
	return paths
}

// Best returns the candidate path with the largest output. Paths whose
// getAmountsOut reverts (no pair) are skipped.
func (r *Router) Best(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*Route, error) {
	var best *Route
	var lastErr error
	for _, path := range r.Candidates(tokenIn, tokenOut) {
		vals, err := r.caller.Call(ctx, "getAmountsOut", amountIn, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		amounts, ok := vals[0].([]*big.Int)
		if !ok || len(amounts) != len(path) {
			continue
		}
		out := amounts[len(amounts)-1]
		if out.Sign() > 0 && (best == nil || out.Cmp(best.AmountOut) > 0) {
			best = &Route{Path: path, AmountIn: amountIn, AmountOut: out}
		}
	}
	if best == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNoLiquidity, tokenIn.Hex(), lastErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrNoLiquidity, tokenIn.Hex())
	}
	return best, nil
}

// MinOut applies slippage: out * (10000 - bps) / 10000.
func MinOut(out *big.Int, slippageBps int) *big.Int {
	m := new(big.Int).Mul(out, big.NewInt(int64(10_000-slippageBps)))
	return m.Quo(m, big.NewInt(10_000))
}
