package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	defaultNetwork     = "base"
	defaultMode        = "mainnet"
	defaultAlgorithm   = "fastest"
	defaultCurrency    = "USD"
	defaultInterval    = 10
	defaultAccountKind = "auto"
	defaultSubmitMode  = "auto"
	defaultVenue       = "0x"
	defaultTarget      = "eth"
	defaultSlippage    = 100
	defaultQuoteMaxAge = 15
	defaultBuffer      = "100000000000000" // 0.0001 ETH
	defaultMetaTTL     = 24 * 60 * 60
	defaultBundlerURL  = "https://api.pimlico.io/v2/{chain_id}/rpc?apikey={key}"
	defaultLogLevel    = "info"

	configFile  = "config.json"
	walletsFile = "wallets.json"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.dustvault.
// A .env file in dir and in the working directory is loaded into the
// environment first; see LoadEnv.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".dustvault")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	if err := LoadEnv(dir); err != nil {
		return nil, err
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if cfg.ProviderKeys == nil {
		cfg.ProviderKeys = make(map[string]string)
	}
	applyEnv(cfg)

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// GetProviderKey returns the API key for a named provider. The environment
// variable DUSTVAULT_<NAME>_KEY takes precedence over the config file.
func (c *Config) GetProviderKey(name string) string {
	if v := os.Getenv(providerEnvVar(name)); v != "" {
		return v
	}
	return c.ProviderKeys[strings.ToLower(name)]
}

// SetProviderKey stores an API key for a named provider.
func (c *Config) SetProviderKey(name, key string) {
	if c.ProviderKeys == nil {
		c.ProviderKeys = make(map[string]string)
	}
	c.ProviderKeys[strings.ToLower(name)] = key
}

// Contract returns the configured address for a named contract, falling back
// to DefaultContracts.
func (c *Config) Contract(name string) string {
	if v, ok := c.Contracts[name]; ok && v != "" {
		return v
	}
	return DefaultContracts[name]
}

// BundlerEndpoint expands the bundler URL template for a chain.
func (c *Config) BundlerEndpoint(chainID int64) string {
	url := c.BundlerURL
	if url == "" {
		url = defaultBundlerURL
	}
	url = strings.ReplaceAll(url, "{chain_id}", fmt.Sprint(chainID))
	return strings.ReplaceAll(url, "{key}", c.GetProviderKey("pimlico"))
}

// PollEvery returns the poll interval as a duration.
func (c *Config) PollEvery() time.Duration {
	if c.PollInterval <= 0 {
		return defaultInterval * time.Second
	}
	return time.Duration(c.PollInterval) * time.Second
}

// QuoteTTL returns how long a swap quote may be used before it is re-fetched.
func (c *Config) QuoteTTL() time.Duration {
	if c.QuoteMaxAge <= 0 {
		return defaultQuoteMaxAge * time.Second
	}
	return time.Duration(c.QuoteMaxAge) * time.Second
}

// MetadataCacheTTL returns the redis expiry for token metadata.
func (c *Config) MetadataCacheTTL() time.Duration {
	if c.MetadataTTL <= 0 {
		return defaultMetaTTL * time.Second
	}
	return time.Duration(c.MetadataTTL) * time.Second
}

// WithdrawBuffer parses WithdrawBufferWei.
func (c *Config) WithdrawBuffer() (*big.Int, error) {
	s := c.WithdrawBufferWei
	if s == "" {
		s = defaultBuffer
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: withdraw_buffer_wei %q", ErrInvalidConfig, s)
	}
	return v, nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath returns the path of wallets.json.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork:    defaultNetwork,
		NetworkMode:       defaultMode,
		RPCAlgorithm:      defaultAlgorithm,
		PriceCurrency:     defaultCurrency,
		PollInterval:      defaultInterval,
		CustomRPCs:        make(map[string][]string),
		ProviderKeys:      make(map[string]string),
		AccountKind:       defaultAccountKind,
		SubmitMode:        defaultSubmitMode,
		BundlerURL:        defaultBundlerURL,
		SwapVenue:         defaultVenue,
		TargetAsset:       defaultTarget,
		SlippageBps:       defaultSlippage,
		QuoteMaxAge:       defaultQuoteMaxAge,
		MetadataTTL:       defaultMetaTTL,
		WithdrawBufferWei: defaultBuffer,
		Proxy: ProxyConfig{
			Listen:         ":8787",
			RatePerSecond:  5,
			Burst:          10,
			AllowedOrigins: []string{"*"},
		},
		LogLevel:  defaultLogLevel,
		configDir: dir,
	}
}
