package cmd

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

// run executes the root command against a fresh config directory.
func run(t *testing.T, dir string, args ...string) error {
	t.Helper()
	testnet, mainnet, networkFlag, walletFlag = false, false, "", ""
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	return rootCmd.Execute()
}

// ---------------------------------------------------------------------------
// config set
// ---------------------------------------------------------------------------

func TestConfigSetPersists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, dir, "config", "set", "venue", "router"))
	require.NoError(t, run(t, dir, "config", "set", "slippage", "75"))

	got, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "router", got.SwapVenue)
	assert.Equal(t, 75, got.SlippageBps)
}

func TestConfigSetUnknownKey(t *testing.T) {
	err := run(t, t.TempDir(), "config", "set", "colour", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	dir := t.TempDir()
	err := run(t, dir, "config", "set", "submit", "carrier-pigeon")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	got, err := config.Load(dir)
	require.NoError(t, err)
	assert.NotEqual(t, "carrier-pigeon", got.SubmitMode)
}

func TestConfigSetContract(t *testing.T) {
	dir := t.TempDir()
	addr := "0x00000000000000000000000000000000000000aa"
	require.NoError(t, run(t, dir, "config", "set-contract", config.ContractSwapper, addr))

	got, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, addr, got.Contract(config.ContractSwapper))

	assert.Error(t, run(t, dir, "config", "set-contract", "nope", addr))
}

func TestSettersParseNumbers(t *testing.T) {
	c := &config.Config{}
	require.NoError(t, setters["index"](c, "3"))
	require.NoError(t, setters["dust-max-usd"](c, "2.5"))
	require.NoError(t, setters["include-spam"](c, "true"))
	require.NoError(t, setters["poll"](c, "15"))
	assert.Equal(t, uint64(3), c.AccountIndex)
	assert.Equal(t, 2.5, c.DustMaxUSD)
	assert.True(t, c.IncludeSpam)
	assert.Equal(t, 15, c.PollInterval)

	assert.Error(t, setters["slippage"](c, "lots"))
	assert.Error(t, setters["index"](c, "-1"))
}

func TestSetterKeysSorted(t *testing.T) {
	keys := setterKeys()
	assert.Contains(t, keys, "account, buffer-wei")
	assert.Contains(t, keys, "venue, wallet")
}

// ---------------------------------------------------------------------------
// parseAmount
// ---------------------------------------------------------------------------

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), v)

	v, err = parseAmount("MAX", 18)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = parseAmount("0", 18)
	assert.Error(t, err)

	_, err = parseAmount("abc", 18)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// explain
// ---------------------------------------------------------------------------

func TestExplainAddsHint(t *testing.T) {
	out := explain(fmt.Errorf("sweep: %w", batch.ErrUserRejected))
	assert.Contains(t, out, "user rejected")
	assert.Contains(t, out, "Nothing was sent")

	out = explain(fmt.Errorf("%w: sponsored", vault.ErrPathUnavailable))
	assert.Contains(t, out, "DUSTVAULT_PIMLICO_KEY")
}

func TestExplainRevert(t *testing.T) {
	out := explain(fmt.Errorf("submit: %w", &batch.RevertError{Reason: "STF"}))
	assert.Contains(t, out, "STF")
	assert.Contains(t, out, "retry the sweep")
}

func TestExplainUnknownErrorHasNoHint(t *testing.T) {
	out := explain(errors.New("boom"))
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "💡")
}

func TestOutputAsset(t *testing.T) {
	cfg = &config.Config{TargetAsset: vault.TargetUSDC}
	sym, dec := outputAsset()
	assert.Equal(t, "USDC", sym)
	assert.Equal(t, 6, dec)

	cfg = &config.Config{TargetAsset: vault.TargetETH}
	sym, dec = outputAsset()
	assert.Equal(t, "ETH", sym)
	assert.Equal(t, 18, dec)
}
