package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/ui"
)

var depositToken string

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Send ETH or a token from the owner wallet into the vault",
	Example: `  dustvault deposit 0.01
  dustvault deposit 25 --token usdc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		symbol, decimals := "ETH", 18
		var token *common.Address
		if depositToken != "" {
			info, err := resolveToken(ctx, e, depositToken)
			if err != nil {
				return err
			}
			symbol, decimals, token = info.Symbol, info.Decimals, &info.Address
		}
		amount, err := parseAmount(args[0], decimals)
		if err != nil {
			return err
		}
		if amount == nil {
			return errors.New("deposit needs an explicit amount")
		}

		h, err := e.vault.Account(ctx)
		if err != nil {
			return err
		}
		if !yesFlag && !ui.Confirm(fmt.Sprintf("Deposit %s %s into %s?", args[0], symbol, ui.TruncateAddr(h.Address.Hex()))) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		sp := ui.NewSpinner("Waiting for confirmation…")
		sp.Start()
		hash, err := e.vault.Deposit(ctx, token, amount)
		sp.Stop()
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Deposited %s %s", args[0], symbol)))
		fmt.Println(ui.Meta("  " + e.chain.TxURL(e.mode, hash.Hex())))
		return nil
	},
}

func init() {
	depositCmd.Flags().StringVarP(&depositToken, "token", "t", "", "token address, usdc or weth (default ETH)")
	depositCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation prompt")
}
