package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/dustvault/cmd.Version=1.2.3" .
var Version = "0.3.0"

var (
	cfgDir      string
	cfg         *config.Config
	logger      *slog.Logger
	verbose     bool
	testnet     bool
	mainnet     bool
	networkFlag string
	walletFlag  string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "dustvault",
	Short: "Sweep wallet dust into a smart-account vault",
	Long: `dustvault finds the small token balances ("dust") sitting in a wallet's
smart-account vault and swaps them to ETH or USDC in a single batch.

A vault is an ERC-4337 smart account owned by one of your wallets. Coinbase
and Safe vaults submit gas-sponsored user operations through a bundler;
simple vaults are driven by ordinary transactions from the owner.

Global flags --testnet and --mainnet override the configured network mode
for a single invocation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}
		if networkFlag != "" {
			cfg.DefaultNetwork = networkFlag
		}
		logger = logging.Init(cfg.LogLevel, verbose)
		return cfg.Validate()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, explain(err))
		os.Exit(1)
	}
}

func init() {
	if envDir := os.Getenv("DUSTVAULT_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.dustvault)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&testnet, "testnet", false, "use testnet instead of mainnet")
	pf.BoolVar(&mainnet, "mainnet", false, "use mainnet instead of testnet")
	pf.StringVarP(&networkFlag, "network", "n", "", "chain to use (default from config)")
	pf.StringVarP(&walletFlag, "wallet", "w", "", "owner wallet name (default wallet if empty)")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		configCmd,
		walletCmd,
		rpcCmd,
		accountCmd,
		holdingsCmd,
		depositCmd,
		quoteCmd,
		sweepCmd,
		withdrawCmd,
		watchCmd,
		serveCmd,
	)
}
