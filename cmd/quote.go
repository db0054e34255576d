package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/providers"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
)

var quoteVenue string

var quoteCmd = &cobra.Command{
	Use:   "quote <token> [amount]",
	Short: "Price selling one token on the configured venue",
	Long: `Price selling one token into the sweep target. Without an amount the
vault's whole balance of the token is quoted. Nothing is submitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cmd.Flags().Changed("venue") {
			cfg.SwapVenue = quoteVenue
		}
		e, err := openEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		info, err := resolveToken(ctx, e, args[0])
		if err != nil {
			return err
		}
		h := providers.Holding{Token: *info}
		if len(args) == 2 {
			if h.Balance, err = parseAmount(args[1], info.Decimals); err != nil {
				return err
			}
		}
		if h.Balance == nil {
			vh, err := e.vault.Account(ctx)
			if err != nil {
				return err
			}
			if h.Balance, err = contract.BalanceOf(ctx, e.client, info.Address, vh.Address); err != nil {
				return err
			}
			if h.Balance.Sign() == 0 {
				return fmt.Errorf("the vault holds no %s; pass an amount to quote anyway", info.Symbol)
			}
		}

		plan, err := e.vault.PlanSweep(ctx, []providers.Holding{h})
		if plan != nil {
			sym, dec := outputAsset()
			fmt.Print(ui.PlanTable(plan, sym, dec))
		}
		return err
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteVenue, "venue", "0x", "swap venue: 0x, router or swapper")
}
