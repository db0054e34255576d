package config

// Config holds all dustvault configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network" mapstructure:"default_network"`
	DefaultWallet  string              `json:"default_wallet"  mapstructure:"default_wallet"`
	NetworkMode    string              `json:"network_mode"    mapstructure:"network_mode"`  // "mainnet" | "testnet"
	RPCAlgorithm   string              `json:"rpc_algorithm"   mapstructure:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	PriceCurrency  string              `json:"price_currency"  mapstructure:"price_currency"`
	PollInterval   int                 `json:"poll_interval"   mapstructure:"poll_interval"` // seconds
	CustomRPCs     map[string][]string `json:"custom_rpcs"     mapstructure:"custom_rpcs"`
	ProviderKeys   map[string]string   `json:"provider_keys"   mapstructure:"provider_keys"`

	// Smart account.
	AccountKind  string `json:"account_kind"  mapstructure:"account_kind"` // "auto" | "coinbase" | "simple" | "safe"
	AccountIndex uint64 `json:"account_index" mapstructure:"account_index"`
	SubmitMode   string `json:"submit_mode"   mapstructure:"submit_mode"` // "auto" | "sponsored" | "direct"
	BundlerURL   string `json:"bundler_url"   mapstructure:"bundler_url"` // may contain {chain_id} and {key}

	// Swaps.
	SwapVenue   string `json:"swap_venue"    mapstructure:"swap_venue"`   // "0x" | "router" | "swapper"
	TargetAsset string `json:"target_asset"  mapstructure:"target_asset"` // "eth" | "usdc"
	SlippageBps int    `json:"slippage_bps"  mapstructure:"slippage_bps"`
	QuoteMaxAge int    `json:"quote_max_age" mapstructure:"quote_max_age"` // seconds
	QuoteURL    string `json:"quote_url,omitempty" mapstructure:"quote_url"`

	// Holdings.
	DustMaxUSD  float64             `json:"dust_max_usd"  mapstructure:"dust_max_usd"` // 0 = no ceiling
	IncludeSpam bool                `json:"include_spam"  mapstructure:"include_spam"`
	WatchTokens map[string][]string `json:"watch_tokens,omitempty" mapstructure:"watch_tokens"`
	RedisURL    string              `json:"redis_url,omitempty"    mapstructure:"redis_url"`
	MetadataTTL int                 `json:"metadata_ttl"  mapstructure:"metadata_ttl"` // seconds, redis cache only

	// Withdrawals leave this much ETH in the vault.
	WithdrawBufferWei string `json:"withdraw_buffer_wei" mapstructure:"withdraw_buffer_wei"`

	// Contract address overrides keyed by ContractXxx names.
	Contracts map[string]string `json:"contracts,omitempty" mapstructure:"contracts"`

	Proxy    ProxyConfig `json:"proxy"     mapstructure:"proxy"`
	LogLevel string      `json:"log_level" mapstructure:"log_level"`

	// internal: config dir path used for Save()
	configDir string
}

// ProxyConfig configures the quote proxy served by `dustvault serve`.
type ProxyConfig struct {
	Listen         string   `json:"listen"          mapstructure:"listen"`
	UpstreamURL    string   `json:"upstream_url"    mapstructure:"upstream_url"`
	RatePerSecond  float64  `json:"rate_per_second" mapstructure:"rate_per_second"`
	Burst          int      `json:"burst"           mapstructure:"burst"`
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}
