package cmd

import (
	"errors"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/rpc"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
)

// hints pairs failure classes with a next step for the user. First match wins.
var hints = []struct {
	err  error
	hint string
}{
	{batch.ErrUserRejected, "The request was declined in the wallet. Nothing was sent."},
	{batch.ErrWrongNetwork, "Switch the wallet to the configured network and retry."},
	{batch.ErrSponsorshipRejected, "The paymaster refused to sponsor this batch. Try --mode direct with a simple vault, or check the pimlico policy."},
	{batch.ErrEntryPointUnsupported, "The bundler endpoint does not serve the v0.6 entry point. Check the pimlico URL for this chain."},
	{batch.ErrNotDeployed, "Deploy the vault first: dustvault account deploy"},
	{batch.ErrInsufficientBalance, "Check balances with: dustvault account"},
	{vault.ErrPathUnavailable, "Set DUSTVAULT_PIMLICO_KEY for sponsored vaults, or use submit_mode direct."},
	{vault.ErrVenueUnavailable, "Pick another venue with --venue or set DUSTVAULT_ZEROEX_KEY."},
	{account.ErrUnsupportedChain, "The account factory is not deployed on this network. Override it under contracts in config.json."},
	{wallet.ErrWatchOnly, "Add a signing wallet: dustvault wallet add <name> --key <private-key>"},
	{wallet.ErrWalletNotFound, "List wallets with: dustvault wallet list"},
	{rpc.ErrNoHealthyRPC, "Add a working endpoint: dustvault rpc add <chain> <url>"},
	{config.ErrMissingKey, "Keys can live in ~/.dustvault/.env as DUSTVAULT_<PROVIDER>_KEY=..."},
}

// explain renders err with a hint for known failure classes.
func explain(err error) string {
	out := ui.Err(err.Error())
	var rev *batch.RevertError
	if errors.As(err, &rev) {
		return out + "\n" + ui.Hint("The batch reverted on-chain. Quotes may have moved; retry the sweep to re-price.")
	}
	for _, h := range hints {
		if errors.Is(err, h.err) {
			return out + "\n" + ui.Hint(h.hint)
		}
	}
	return out
}
