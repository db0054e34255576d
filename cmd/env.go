package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/price"
	"github.com/Mohsinsiddi/dustvault/internal/providers"
	"github.com/Mohsinsiddi/dustvault/internal/quote"
	"github.com/Mohsinsiddi/dustvault/internal/rpc"
	"github.com/Mohsinsiddi/dustvault/internal/userop"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
)

// env is everything a vault command needs, built once per invocation.
type env struct {
	chain    *chain.Chain
	mode     string
	client   *chain.EVMClient
	wallet   *wallet.Wallet
	resolver *account.Resolver
	vault    *vault.Service
	closers  []func() error
}

// Close releases connections opened by openEnv.
func (e *env) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			logger.Debug("close failed", "err", err)
		}
	}
}

// currentChain returns the configured chain.
func currentChain() (*chain.Chain, error) {
	c, err := chain.NewRegistry().GetByName(cfg.DefaultNetwork)
	if err != nil {
		return nil, fmt.Errorf("unknown chain %q: %w", cfg.DefaultNetwork, err)
	}
	return c, nil
}

// rpcURLs is the custom RPCs for c followed by the built-in ones.
func rpcURLs(c *chain.Chain) []string {
	urls := append([]string{}, cfg.GetRPCs(c.Name)...)
	return append(urls, c.RPCs(cfg.NetworkMode)...)
}

// dialChain picks the best RPC for c and returns a client for it.
func dialChain(ctx context.Context, c *chain.Chain) (*chain.EVMClient, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	url, err := rpc.SelectBest(ctx, rpcURLs(c), cfg.RPCAlgorithm, c.ID(cfg.NetworkMode), logger)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.Name, cfg.NetworkMode, err)
	}
	return chain.NewEVMClient(url), nil
}

// newWalletManager creates a Manager backed by the config-dir JSON store and
// the OS keychain.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(wallet.OpenKeystore(cfg.Dir())),
	)
}

func contractAddr(name string) common.Address {
	return common.HexToAddress(cfg.Contract(name))
}

// accountContracts maps configured addresses onto the resolver's view.
func accountContracts() account.Contracts {
	return account.Contracts{
		EntryPoint:       contractAddr(config.ContractEntryPoint),
		CoinbaseFactory:  contractAddr(config.ContractCoinbaseFactory),
		SimpleFactory:    contractAddr(config.ContractSimpleFactory),
		SafeProxyFactory: contractAddr(config.ContractSafeFactory),
		SafeSingleton:    contractAddr(config.ContractSafeSingleton),
		Safe4337Module:   contractAddr(config.ContractSafeModule),
		SafeModuleSetup:  contractAddr(config.ContractSafeModuleSetup),
		MultiSend:        contractAddr(config.ContractMultiSend),
	}
}

// metadataCache returns a redis cache when redis_url is set, falling back
// to memory when redis is unreachable.
func metadataCache(ctx context.Context) (providers.MetadataCache, func() error) {
	if cfg.RedisURL == "" {
		return providers.NewMemoryCache(), nil
	}
	rc, err := providers.NewRedisCache(ctx, cfg.RedisURL, cfg.MetadataCacheTTL(), logger)
	if err != nil {
		logger.Warn("redis unavailable, caching token metadata in memory", "err", err)
		return providers.NewMemoryCache(), nil
	}
	return rc, rc.Close
}

// quoteFetcher returns the 0x client, pointed at quote_url when a proxy is
// configured.
func quoteFetcher() quote.Fetcher {
	if cfg.Validate(config.FeatureQuotes) != nil {
		return nil
	}
	return quote.NewZeroEx(cfg.QuoteURL, cfg.GetProviderKey("zeroex"), logger)
}

// openEnv resolves chain, RPC and wallet session and assembles the vault
// service. gate may be nil.
func openEnv(ctx context.Context, gate vault.Gate) (*env, error) {
	c, err := currentChain()
	if err != nil {
		return nil, err
	}
	client, err := dialChain(ctx, c)
	if err != nil {
		return nil, err
	}
	mode := cfg.NetworkMode
	chainID := c.ID(mode)

	mgr := newWalletManager()
	name := walletFlag
	if name == "" {
		name = cfg.DefaultWallet
	}
	w, err := mgr.Resolve(name)
	if err != nil {
		return nil, err
	}
	session, err := wallet.Open(w, mgr.Keystore(), client, chainID)
	if err != nil {
		return nil, err
	}

	kind, err := account.ParseKind(cfg.AccountKind)
	if err != nil {
		return nil, err
	}
	resolver := account.NewResolver(client, accountContracts(), kind, logger)

	cache, closeCache := metadataCache(ctx)
	e := &env{chain: c, mode: mode, client: client, wallet: w, resolver: resolver}
	if closeCache != nil {
		e.closers = append(e.closers, closeCache)
	}

	subs := []batch.Submitter{&batch.Direct{
		Client:     client,
		Resolver:   resolver,
		Transactor: session.Transactor,
		ChainID:    chainID,
		Timeout:    config.TxConfirmTimeout,
		Interval:   config.ReceiptPollInterval,
		Log:        logger,
	}}
	if err := cfg.Validate(config.FeatureSponsored); err == nil {
		subs = append(subs, &batch.Sponsored{
			Client:     client,
			Bundler:    userop.NewClient(cfg.BundlerEndpoint(chainID), logger),
			Resolver:   resolver,
			Signer:     session.Signer,
			EntryPoint: contractAddr(config.ContractEntryPoint),
			ChainID:    chainID,
			Timeout:    config.UserOpConfirmTimeout,
			Interval:   config.ReceiptPollInterval,
			Log:        logger,
		})
	} else {
		logger.Debug("sponsored path disabled", "reason", err)
	}

	buffer, err := cfg.WithdrawBuffer()
	if err != nil {
		e.Close()
		return nil, err
	}
	assets := c.Assets(mode)
	svc, err := vault.New(vault.Options{
		Chain:          c,
		Mode:           mode,
		Client:         client,
		Accounts:       resolver,
		Session:        session,
		Connector:      w.Connector,
		Index:          cfg.AccountIndex,
		Holdings:       providers.BuildRegistry(c, mode, client, cfg, cache),
		Prices:         price.NewFetcher(cfg.PriceCurrency),
		Venue:          cfg.SwapVenue,
		Target:         cfg.TargetAsset,
		SlippageBps:    cfg.SlippageBps,
		Quotes:         quoteFetcher(),
		QuoteMaxAge:    cfg.QuoteTTL(),
		Router:         quote.NewRouter(client, contractAddr(config.ContractRouter), assets.WrappedNative, assets.Stablecoin),
		Swapper:        contractAddr(config.ContractSwapper),
		Submitters:     subs,
		SubmitMode:     cfg.SubmitMode,
		DustMaxUSD:     cfg.DustMaxUSD,
		IncludeSpam:    cfg.IncludeSpam,
		WithdrawBuffer: buffer,
		Gate:           gate,
		Log:            logger,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	e.vault = svc
	return e, nil
}

// outputAsset is the symbol and decimals of the sweep target.
func outputAsset() (string, int) {
	if cfg.TargetAsset == vault.TargetUSDC {
		return "USDC", 6
	}
	return "ETH", 18
}
