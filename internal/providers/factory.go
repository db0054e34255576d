package providers

import (
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/ethereum/go-ethereum/common"
)

// BuildRegistry assembles the holdings providers for a chain, in priority
// order:
//
//  1. Moralis     if a "moralis" key is configured (spam flags)
//  2. Alchemy     if an "alchemy" key is configured
//  3. Ankr        free tier, when the chain is supported
//  4. BlockScout  when the chain has an explorer API
//  5. Etherscan   if an "etherscan" key is configured
//  6. RPC         balanceOf over the watch list, always last
func BuildRegistry(c *chain.Chain, mode string, client *chain.EVMClient, cfg *config.Config, cache MetadataCache) *Registry {
	id := c.ID(mode)
	var ps []Provider

	if m := NewMoralis(id, cfg.GetProviderKey("moralis")); m != nil {
		ps = append(ps, m)
	}
	if a := NewAlchemy(id, cfg.GetProviderKey("alchemy"), cache); a != nil {
		ps = append(ps, a)
	}
	if a := NewAnkr(id, cfg.GetProviderKey("ankr")); a != nil {
		ps = append(ps, a)
	}
	if api := c.ExplorerAPIURL(mode); api != "" {
		ps = append(ps, NewBlockScout(api))
	}
	if e := NewEtherscan(id, cfg.GetProviderKey("etherscan"), client); e != nil {
		ps = append(ps, e)
	}
	ps = append(ps, NewRPC(client, id, WatchList(c, mode, cfg), cache))

	return New(ps...)
}

// WatchList is the configured watch tokens for the chain plus its
// well-known assets, deduplicated.
func WatchList(c *chain.Chain, mode string, cfg *config.Config) []common.Address {
	assets := c.Assets(mode)
	seen := make(map[common.Address]bool)
	var out []common.Address
	add := func(a common.Address) {
		if a == (common.Address{}) || seen[a] {
			return
		}
		seen[a] = true
		out = append(out, a)
	}
	for _, s := range cfg.WatchTokens[c.Name] {
		if common.IsHexAddress(s) {
			add(common.HexToAddress(s))
		}
	}
	add(assets.Stablecoin)
	add(assets.WrappedNative)
	return out
}
