package providers

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// RPC reads balanceOf for a fixed watch list. It cannot discover tokens and
// is the last-resort fallback.
type RPC struct {
	client  *chain.EVMClient
	chainID int64
	tokens  []common.Address
	cache   MetadataCache
}

func NewRPC(client *chain.EVMClient, chainID int64, tokens []common.Address, cache MetadataCache) *RPC {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &RPC{client: client, chainID: chainID, tokens: tokens, cache: cache}
}

func (r *RPC) Name() string { return "rpc" }

func (r *RPC) GetHoldings(ctx context.Context, owner common.Address) ([]Holding, error) {
	var out []Holding
	for _, token := range r.tokens {
		bal, err := contract.BalanceOf(ctx, r.client, token, owner)
		if err != nil {
			return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
		}
		if bal.Sign() == 0 {
			continue
		}
		info, err := r.metadata(ctx, token)
		if err != nil {
			return nil, err
		}
		out = append(out, Holding{Token: info, Balance: bal})
	}
	return out, nil
}

func (r *RPC) metadata(ctx context.Context, token common.Address) (contract.TokenInfo, error) {
	if info, ok := r.cache.Get(ctx, r.chainID, token); ok {
		return info, nil
	}
	info, err := contract.ReadToken(ctx, r.client, token)
	if err != nil {
		return contract.TokenInfo{}, err
	}
	r.cache.Put(ctx, r.chainID, *info)
	return *info, nil
}
