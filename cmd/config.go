package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		shown.ProviderKeys = make(map[string]string, len(cfg.ProviderKeys))
		for name := range cfg.ProviderKeys {
			shown.ProviderKeys[name] = "********"
		}
		data, err := json.MarshalIndent(&shown, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(ui.StyleTitle.Render("Configuration"))
		fmt.Println(string(data))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

// setters maps `config set` keys onto config fields.
var setters = map[string]func(c *config.Config, v string) error{
	"network":     func(c *config.Config, v string) error { c.DefaultNetwork = v; return nil },
	"mode":        func(c *config.Config, v string) error { c.NetworkMode = v; return nil },
	"wallet":      func(c *config.Config, v string) error { c.DefaultWallet = v; return nil },
	"rpc-algo":    func(c *config.Config, v string) error { c.RPCAlgorithm = v; return nil },
	"account":     func(c *config.Config, v string) error { c.AccountKind = v; return nil },
	"submit":      func(c *config.Config, v string) error { c.SubmitMode = v; return nil },
	"venue":       func(c *config.Config, v string) error { c.SwapVenue = v; return nil },
	"target":      func(c *config.Config, v string) error { c.TargetAsset = v; return nil },
	"bundler-url": func(c *config.Config, v string) error { c.BundlerURL = v; return nil },
	"quote-url":   func(c *config.Config, v string) error { c.QuoteURL = v; return nil },
	"redis-url":   func(c *config.Config, v string) error { c.RedisURL = v; return nil },
	"log-level":   func(c *config.Config, v string) error { c.LogLevel = v; return nil },
	"buffer-wei":  func(c *config.Config, v string) error { c.WithdrawBufferWei = v; return nil },
	"slippage": func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		c.SlippageBps = n
		return err
	},
	"index": func(c *config.Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		c.AccountIndex = n
		return err
	},
	"dust-max-usd": func(c *config.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		c.DustMaxUSD = f
		return err
	},
	"include-spam": func(c *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.IncludeSpam = b
		return err
	},
	"poll": func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		c.PollInterval = n
		return err
	},
}

func setterKeys() string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Keys: " + setterKeys(),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, ok := setters[args[0]]
		if !ok {
			return fmt.Errorf("unknown key %q (want one of %s)", args[0], setterKeys())
		}
		if err := set(cfg, args[1]); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <provider> <api-key>",
	Short: "Store an API key (zeroex, pimlico, alchemy, moralis, ankr, etherscan)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.SetProviderKey(args[0], args[1])
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("API key for %s saved.", args[0])))
		fmt.Println(ui.Hint("Keys in the environment (DUSTVAULT_" + strings.ToUpper(args[0]) + "_KEY) take precedence."))
		return nil
	},
}

var configContractCmd = &cobra.Command{
	Use:   "set-contract <name> <address>",
	Short: "Override a contract address (entry_point, simple_factory, swapper, router, ...)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := config.DefaultContracts[args[0]]; !ok {
			return fmt.Errorf("unknown contract %q", args[0])
		}
		if cfg.Contracts == nil {
			cfg.Contracts = make(map[string]string)
		}
		cfg.Contracts[args[0]] = args[1]
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %s", args[0], ui.Addr(args[1]))))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings and the API keys each feature needs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := true
		for _, f := range []config.Feature{config.FeatureSponsored, config.FeatureQuotes, config.FeatureProxy} {
			if err := cfg.Validate(f); err != nil {
				ok = false
				fmt.Println(ui.Warn(fmt.Sprintf("%-10s %v", f, err)))
				continue
			}
			fmt.Println(ui.Success(string(f)))
		}
		if !ok {
			fmt.Println(ui.Hint("Features without their keys are disabled; the rest keep working."))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configSetCmd, configSetKeyCmd, configContractCmd, configValidateCmd)
}
