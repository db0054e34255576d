package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "DUSTVAULT_"

// LoadEnv loads .env files from dir and the working directory. Variables
// already present in the environment are not overwritten. Missing files are
// ignored.
func LoadEnv(dir string) error {
	for _, path := range []string{filepath.Join(dir, ".env"), ".env"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

func providerEnvVar(name string) string {
	return envPrefix + strings.ToUpper(name) + "_KEY"
}

// applyEnv overlays DUSTVAULT_* settings onto cfg.
func applyEnv(cfg *Config) {
	str := map[string]*string{
		"NETWORK":      &cfg.DefaultNetwork,
		"NETWORK_MODE": &cfg.NetworkMode,
		"WALLET":       &cfg.DefaultWallet,
		"ACCOUNT_KIND": &cfg.AccountKind,
		"SUBMIT_MODE":  &cfg.SubmitMode,
		"BUNDLER_URL":  &cfg.BundlerURL,
		"SWAP_VENUE":   &cfg.SwapVenue,
		"QUOTE_URL":    &cfg.QuoteURL,
		"REDIS_URL":    &cfg.RedisURL,
		"LOG_LEVEL":    &cfg.LogLevel,
		"PROXY_LISTEN": &cfg.Proxy.Listen,
	}
	for k, dst := range str {
		if v := os.Getenv(envPrefix + k); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv(envPrefix + "ACCOUNT_INDEX"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.AccountIndex = n
		}
	}
}
