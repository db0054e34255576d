package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo is ERC-20 metadata read from the token contract.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals int            `json:"decimals"`
}

// ReadToken reads symbol, name and decimals. Tokens that omit name or symbol
// get placeholders; a failing decimals() call is an error.
func ReadToken(ctx context.Context, client *chain.EVMClient, token common.Address) (*TokenInfo, error) {
	c := NewCaller(client, ERC20, token)
	info := &TokenInfo{Address: token, Symbol: "???", Name: "Unknown"}

	vals, err := c.Call(ctx, "decimals")
	if err != nil {
		return nil, err
	}
	d, ok := first(vals).(uint8)
	if !ok {
		return nil, fmt.Errorf("erc20.decimals: unexpected output %T", first(vals))
	}
	info.Decimals = int(d)

	if vals, err := c.Call(ctx, "symbol"); err == nil {
		if s, ok := first(vals).(string); ok && s != "" {
			info.Symbol = s
		}
	}
	if vals, err := c.Call(ctx, "name"); err == nil {
		if s, ok := first(vals).(string); ok && s != "" {
			info.Name = s
		}
	}
	return info, nil
}

// BalanceOf returns the token balance of owner.
func BalanceOf(ctx context.Context, client *chain.EVMClient, token, owner common.Address) (*big.Int, error) {
	return NewCaller(client, ERC20, token).CallBig(ctx, "balanceOf", owner)
}

// Allowance returns how much spender may pull from owner.
func Allowance(ctx context.Context, client *chain.EVMClient, token, owner, spender common.Address) (*big.Int, error) {
	return NewCaller(client, ERC20, token).CallBig(ctx, "allowance", owner, spender)
}
