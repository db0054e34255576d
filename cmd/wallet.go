package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
)

var (
	walletKeyFlag       string
	walletRemoteFlag    string
	walletConnectorID   string
	walletConnectorName string
	walletCoinbaseFlag  bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage owner wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a signing, remote or watch-only wallet",
	Long: `Add an owner wallet.

  # signing wallet, key kept in the OS keychain
  dustvault wallet add alice --key 0x...

  # remote wallet reached over JSON-RPC (a browser wallet bridge, a signer service)
  dustvault wallet add cb 0xOwner --remote http://127.0.0.1:8545 --coinbase

  # watch-only
  dustvault wallet add treasury 0xOwner

Connector flags describe how the wallet is reached; they pick the vault kind
when account_kind is auto.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()
		conn := wallet.Connector{ID: walletConnectorID, Name: walletConnectorName, IsCoinbaseWallet: walletCoinbaseFlag}

		var kind string
		switch {
		case walletKeyFlag != "":
			if err := mgr.AddWithKey(name, walletKeyFlag); err != nil {
				return err
			}
			if err := mgr.SetConnector(name, conn); err != nil {
				return err
			}
			kind = "Signing"
		case len(args) < 2:
			return fmt.Errorf("address required\n  Usage: dustvault wallet add <name> <address> [--remote <url>]\n  Or for signing: dustvault wallet add <name> --key <private-key>")
		case walletRemoteFlag != "":
			if err := mgr.Add(name, &wallet.Wallet{Address: args[1], Type: wallet.TypeRemote, RemoteURL: walletRemoteFlag, Connector: conn}); err != nil {
				return err
			}
			kind = "Remote"
		default:
			if err := mgr.Add(name, &wallet.Wallet{Address: args[1], Type: wallet.TypeWatchOnly, Connector: conn}); err != nil {
				return err
			}
			kind = "Watch-only"
		}

		w, err := mgr.Get(name)
		if err != nil {
			return err
		}
		det := vaultKind(w)
		fmt.Println(ui.Success(fmt.Sprintf("%s wallet %q added: %s", kind, name, ui.Addr(w.Address))))
		fmt.Println(ui.Meta(fmt.Sprintf("  vault kind: %s (%s)", det.Kind, det.Branch)))
		fmt.Println(ui.Hint("Set as default with: dustvault wallet use " + name))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		wallets := newWalletManager().List()
		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Add one with: dustvault wallet generate alice"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "NAME", Width: 14},
			{Title: "ADDRESS", Width: 42},
			{Title: "TYPE", Width: 10},
			{Title: "VAULT", Width: 9},
			{Title: "DEFAULT", Width: 7},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, w.Type, string(vaultKind(w).Kind), def})
		}
		t.Footer = fmt.Sprintf("%d wallet(s)", len(wallets))
		fmt.Print(t.Render())
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !ui.ConfirmDanger(fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := newWalletManager().SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new owner key",
	Long: `Generate a new EVM key and store it in the OS keychain.

The private key is displayed once. Re-export later with: dustvault wallet export <name>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		w, hexKey, err := newWalletManager().Generate(name)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("  %s  %s\n", ui.Meta("Wallet :"), ui.Val(w.Name))
		fmt.Printf("  %s  %s\n\n", ui.Meta("Address:"), ui.Addr(w.Address))
		fmt.Println(ui.DangerBox(
			ui.Warn("SAVE YOUR PRIVATE KEY. It is shown only once.") + "\n\n" +
				ui.Val(hexKey) + "\n\n" +
				ui.Hint("The vault is owned by this key. Losing it locks the vault."),
		))
		return nil
	},
}

var walletExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Reveal the private key of a signing wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !ui.ConfirmDanger(fmt.Sprintf("Reveal the private key of %q on screen?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		hexKey, err := newWalletManager().ExportKey(name)
		if err != nil {
			return err
		}
		fmt.Println(ui.DangerBox(ui.Warn("PRIVATE KEY. Do not share it.") + "\n\n" + ui.Val(hexKey)))
		return nil
	},
}

// vaultKind is the account kind the resolver would pick for w.
func vaultKind(w *wallet.Wallet) account.Detection {
	kind, err := account.ParseKind(cfg.AccountKind)
	if err != nil {
		kind = account.KindAuto
	}
	return account.NewResolver(nil, accountContracts(), kind, logger).ChooseKind(w.Connector)
}

func init() {
	f := walletAddCmd.Flags()
	f.StringVar(&walletKeyFlag, "key", "", "private key for a signing wallet (stored in the OS keychain)")
	f.StringVar(&walletRemoteFlag, "remote", "", "JSON-RPC URL of a remote wallet")
	f.StringVar(&walletConnectorID, "connector-id", "", "connector id (e.g. coinbaseWalletSDK, safe)")
	f.StringVar(&walletConnectorName, "connector-name", "", "connector display name")
	f.BoolVar(&walletCoinbaseFlag, "coinbase", false, "the wallet is a Coinbase smart wallet")
	walletAddCmd.MarkFlagsMutuallyExclusive("key", "remote")

	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd, walletGenerateCmd, walletExportCmd)
}
