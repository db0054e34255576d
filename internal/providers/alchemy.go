package providers

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// alchemyNetwork maps chain ids to Alchemy network identifiers.
var alchemyNetwork = map[int64]string{
	1:        "eth-mainnet",
	11155111: "eth-sepolia",
	8453:     "base-mainnet",
	84532:    "base-sepolia",
	10:       "opt-mainnet",
	11155420: "opt-sepolia",
	42161:    "arb-mainnet",
	421614:   "arb-sepolia",
}

// Alchemy is backed by the Alchemy Token API.
type Alchemy struct {
	chainID int64
	url     string
	cache   MetadataCache
}

// NewAlchemy returns nil if apiKey is empty or the chain is not supported.
func NewAlchemy(chainID int64, apiKey string, cache MetadataCache) *Alchemy {
	if apiKey == "" {
		return nil
	}
	net, ok := alchemyNetwork[chainID]
	if !ok {
		return nil
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Alchemy{
		chainID: chainID,
		url:     fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", net, apiKey),
		cache:   cache,
	}
}

func (a *Alchemy) Name() string { return "alchemy" }

type alchemyBalances struct {
	TokenBalances []struct {
		ContractAddress common.Address `json:"contractAddress"`
		TokenBalance    string         `json:"tokenBalance"`
		Error           *string        `json:"error"`
	} `json:"tokenBalances"`
}

type alchemyMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals *int   `json:"decimals"`
	Logo     string `json:"logo"`
}

func (a *Alchemy) GetHoldings(ctx context.Context, owner common.Address) ([]Holding, error) {
	var bals alchemyBalances
	if err := postRPC(ctx, a.url, "alchemy_getTokenBalances", []interface{}{owner.Hex(), "erc20"}, &bals); err != nil {
		return nil, err
	}

	var out []Holding
	for _, tb := range bals.TokenBalances {
		if tb.Error != nil {
			continue
		}
		bal, ok := hexBigInt(tb.TokenBalance)
		if !ok || bal.Sign() == 0 {
			continue
		}
		info, logo, err := a.metadata(ctx, tb.ContractAddress)
		if err != nil {
			return nil, fmt.Errorf("metadata %s: %w", tb.ContractAddress.Hex(), err)
		}
		out = append(out, Holding{Token: info, Balance: bal, Logo: logo})
	}
	return out, nil
}

func (a *Alchemy) metadata(ctx context.Context, token common.Address) (contract.TokenInfo, string, error) {
	if info, ok := a.cache.Get(ctx, a.chainID, token); ok {
		return info, "", nil
	}
	var md alchemyMetadata
	if err := postRPC(ctx, a.url, "alchemy_getTokenMetadata", []interface{}{token.Hex()}, &md); err != nil {
		return contract.TokenInfo{}, "", err
	}
	if md.Decimals == nil {
		return contract.TokenInfo{}, "", fmt.Errorf("token has no decimals")
	}
	info := contract.TokenInfo{Address: token, Symbol: md.Symbol, Name: md.Name, Decimals: *md.Decimals}
	a.cache.Put(ctx, a.chainID, info)
	return info, md.Logo, nil
}
