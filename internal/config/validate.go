package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrMissingKey    = errors.New("missing API key")
)

// Feature names a capability whose prerequisites Validate checks.
type Feature string

const (
	FeatureSponsored Feature = "sponsored" // bundler + paymaster
	FeatureQuotes    Feature = "quotes"    // 0x quotes fetched directly
	FeatureProxy     Feature = "proxy"     // serving the 0x proxy
)

// Validate checks static settings plus the prerequisites of each requested
// feature. It performs no network access.
func (c *Config) Validate(features ...Feature) error {
	var errs []error
	oneOf := func(field, v string, allowed ...string) {
		if !slices.Contains(allowed, v) {
			errs = append(errs, fmt.Errorf("%w: %s %q (want one of %s)", ErrInvalidConfig, field, v, strings.Join(allowed, ", ")))
		}
	}

	oneOf("network_mode", c.NetworkMode, "mainnet", "testnet")
	oneOf("rpc_algorithm", c.RPCAlgorithm, "fastest", "round-robin", "failover")
	oneOf("account_kind", c.AccountKind, "auto", "coinbase", "simple", "safe")
	oneOf("submit_mode", c.SubmitMode, "auto", "sponsored", "direct")
	oneOf("swap_venue", c.SwapVenue, "0x", "router", "swapper")
	oneOf("target_asset", c.TargetAsset, "eth", "usdc")

	if c.SlippageBps < 0 || c.SlippageBps > 5000 {
		errs = append(errs, fmt.Errorf("%w: slippage_bps %d out of range 0..5000", ErrInvalidConfig, c.SlippageBps))
	}
	if c.SwapVenue == "swapper" && c.TargetAsset != "eth" {
		errs = append(errs, fmt.Errorf("%w: the swapper venue only sells into eth", ErrInvalidConfig))
	}
	if _, err := c.WithdrawBuffer(); err != nil {
		errs = append(errs, err)
	}
	for name, addr := range c.Contracts {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Errorf("%w: contracts.%s %q is not an address", ErrInvalidConfig, name, addr))
		}
	}

	for _, f := range features {
		switch f {
		case FeatureSponsored:
			if strings.Contains(c.bundlerTemplate(), "{key}") && c.GetProviderKey("pimlico") == "" {
				errs = append(errs, fmt.Errorf("%w: pimlico (set DUSTVAULT_PIMLICO_KEY or provider_keys.pimlico)", ErrMissingKey))
			}
		case FeatureQuotes:
			// A configured quote_url is assumed to be a proxy that holds the key.
			if c.QuoteURL == "" && c.GetProviderKey("zeroex") == "" {
				errs = append(errs, fmt.Errorf("%w: zeroex (set DUSTVAULT_ZEROEX_KEY or quote_url)", ErrMissingKey))
			}
		case FeatureProxy:
			if c.GetProviderKey("zeroex") == "" {
				errs = append(errs, fmt.Errorf("%w: zeroex (set DUSTVAULT_ZEROEX_KEY)", ErrMissingKey))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Config) bundlerTemplate() string {
	if c.BundlerURL == "" {
		return defaultBundlerURL
	}
	return c.BundlerURL
}
