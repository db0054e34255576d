package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
)

// resolveToken accepts a contract address or one of the chain's well-known
// symbols ("usdc", "weth") and reads the token's metadata.
func resolveToken(ctx context.Context, e *env, s string) (*contract.TokenInfo, error) {
	assets := e.chain.Assets(e.mode)
	var addr common.Address
	switch strings.ToLower(s) {
	case "usdc":
		addr = assets.Stablecoin
	case "weth":
		addr = assets.WrappedNative
	default:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid token %q (want an address, usdc or weth)", s)
		}
		addr = common.HexToAddress(s)
	}
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%s has no %s on %s", e.chain.Name, s, e.mode)
	}
	return contract.ReadToken(ctx, e.client, addr)
}

// parseAmount parses a decimal amount in whole units. "max" returns nil.
func parseAmount(s string, decimals int) (*big.Int, error) {
	if strings.EqualFold(s, "max") {
		return nil, nil
	}
	v, err := chain.ParseUnits(s, decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %q", s)
	}
	return v, nil
}
