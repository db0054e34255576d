package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

var (
	withdrawToken string
	withdrawTo    string
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount|max>",
	Short: "Move ETH or a token out of the vault",
	Long: `Move ETH or a token out of the vault to the owner (or --to).

"max" withdraws the whole token balance. For ETH it leaves
withdraw_buffer_wei behind so a simple vault can still pay for its next batch.`,
	Example: `  dustvault withdraw max
  dustvault withdraw 12.5 --token usdc --to 0xFriend`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		req := vault.WithdrawRequest{}
		symbol, decimals := "ETH", 18
		if withdrawToken != "" {
			info, err := resolveToken(ctx, e, withdrawToken)
			if err != nil {
				return err
			}
			symbol, decimals, req.Token = info.Symbol, info.Decimals, &info.Address
		}
		if req.Amount, err = parseAmount(args[0], decimals); err != nil {
			return err
		}
		if withdrawTo != "" {
			if !common.IsHexAddress(withdrawTo) {
				return fmt.Errorf("invalid recipient %q", withdrawTo)
			}
			req.To = common.HexToAddress(withdrawTo)
		}

		to := req.To
		if to == (common.Address{}) {
			to = e.vault.Owner()
		}
		if !yesFlag && !ui.Confirm(fmt.Sprintf("Withdraw %s %s to %s?", args[0], symbol, ui.TruncateAddr(to.Hex()))) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		sp := ui.NewSpinner("Submitting withdrawal…")
		sp.Start()
		res, amount, err := e.vault.Withdraw(ctx, req)
		sp.Stop()
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Withdrew %s %s", chain.FormatUnits(amount, decimals), symbol)))
		fmt.Println(ui.Receipt(res, e.chain, e.mode))
		return nil
	},
}

func init() {
	f := withdrawCmd.Flags()
	f.StringVarP(&withdrawToken, "token", "t", "", "token address, usdc or weth (default ETH)")
	f.StringVar(&withdrawTo, "to", "", "recipient (default: the owner wallet)")
	f.BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation prompt")
}
