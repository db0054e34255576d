package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/ui"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

var (
	holdingsOwner bool
	holdingsAll   bool
)

var holdingsCmd = &cobra.Command{
	Use:     "holdings [address]",
	Aliases: []string{"dust"},
	Short:   "List the dust in the vault (or any address)",
	Long: `List token balances and split them into dust and kept holdings.

Dust is every non-zero ERC-20 except USDC and the sweep target, below
dust_max_usd when a ceiling is set. Tokens flagged as spam by the indexer are
left out unless include_spam is on.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		var target common.Address
		switch {
		case len(args) == 1:
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			target = common.HexToAddress(args[0])
		case holdingsOwner:
			target = e.vault.Owner()
		default:
			h, err := e.vault.Account(ctx)
			if err != nil {
				return err
			}
			target = h.Address
		}

		sp := ui.NewSpinner("Fetching holdings…")
		sp.Start()
		p, err := e.vault.Holdings(ctx, target)
		sp.Stop()
		if err != nil {
			return err
		}
		printPortfolio(p)
		return nil
	},
}

func printPortfolio(p *vault.Portfolio) {
	fmt.Print(ui.Portfolio(p))
	if holdingsAll && len(p.Kept) > 0 {
		fmt.Println()
		fmt.Println(ui.StyleTitle.Render("Kept"))
		fmt.Print(ui.HoldingsTable(p.Kept).Render())
	}
}

func init() {
	holdingsCmd.Flags().BoolVar(&holdingsOwner, "owner", false, "list the owner wallet instead of the vault")
	holdingsCmd.Flags().BoolVar(&holdingsAll, "all", false, "also list holdings that are not dust")
}
