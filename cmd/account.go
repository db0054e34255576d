package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/ui"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Aliases: []string{"vault"},
	Short:   "Show the vault address, deployment state and balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer e.Close()

		ov, err := e.vault.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(ui.Overview(ov, e.chain, e.mode))
		fmt.Println(ui.Meta(fmt.Sprintf("  kind chosen by %s", ov.Handle.Branch)))
		if !ov.Deployed {
			fmt.Println(ui.Hint("The vault deploys with its first sponsored batch, or now with: dustvault account deploy"))
		}
		return nil
	},
}

var accountDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the vault from the owner wallet (owner pays gas)",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer e.Close()

		h, err := e.vault.Account(cmd.Context())
		if err != nil {
			return err
		}
		if !yesFlag && !ui.Confirm(fmt.Sprintf("Deploy %s vault %s on %s?", h.Kind, h.Address.Hex(), e.chain.Label(e.mode))) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		sp := ui.NewSpinner("Deploying vault…")
		sp.Start()
		hash, err := e.vault.Deploy(cmd.Context())
		sp.Stop()
		if errors.Is(err, vault.ErrAlreadyDeployed) {
			fmt.Println(ui.Info(err.Error()))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Vault deployed: " + ui.Addr(h.Address.Hex())))
		fmt.Println(ui.Meta("  " + e.chain.TxURL(e.mode, hash.Hex())))
		return nil
	},
}

// yesFlag skips confirmation prompts on mutating commands.
var yesFlag bool

func init() {
	accountDeployCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation prompt")
	accountCmd.AddCommand(accountDeployCmd)
}
