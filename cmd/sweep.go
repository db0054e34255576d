package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/ui"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

var (
	sweepVenue    string
	sweepTarget   string
	sweepMode     string
	sweepSlippage int
	sweepSelect   bool
	sweepDryRun   bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Swap every dust token in the vault in one batch",
	Long: `Price a swap for every dust token, show the plan, then submit all swaps as
one batch: a sponsored user operation for coinbase and safe vaults, an owner
transaction for simple vaults.

Quotes older than quote_max_age are fetched again right before submission.`,
	Example: `  dustvault sweep
  dustvault sweep --target usdc --venue router
  dustvault sweep --select --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		if flags.Changed("venue") {
			cfg.SwapVenue = sweepVenue
		}
		if flags.Changed("target") {
			cfg.TargetAsset = sweepTarget
		}
		if flags.Changed("mode") {
			cfg.SubmitMode = sweepMode
		}
		if flags.Changed("slippage") {
			cfg.SlippageBps = sweepSlippage
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		e, err := openEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer e.Close()

		sp := ui.NewSpinner("Fetching vault holdings…")
		sp.Start()
		p, err := e.vault.VaultHoldings(ctx)
		sp.Stop()
		if err != nil {
			return err
		}
		fmt.Print(ui.Portfolio(p))
		if len(p.Dust) == 0 {
			return nil
		}

		dust := p.Dust
		if sweepSelect {
			if dust, err = ui.PickDust("Select dust to sweep", p.Dust); err != nil {
				if errors.Is(err, ui.ErrNothingSelected) {
					fmt.Println(ui.Meta("Nothing selected."))
					return nil
				}
				return err
			}
		}

		sp = ui.NewSpinner(fmt.Sprintf("Pricing %d swap(s) on %s…", len(dust), cfg.SwapVenue))
		sp.Start()
		plan, err := e.vault.PlanSweep(ctx, dust)
		sp.Stop()
		if plan != nil {
			sym, dec := outputAsset()
			fmt.Println()
			fmt.Print(ui.PlanTable(plan, sym, dec))
		}
		if err != nil {
			return err
		}
		if sweepDryRun {
			fmt.Println(ui.Info("Dry run: nothing submitted."))
			return nil
		}

		ov, err := e.vault.Status(ctx)
		if err != nil {
			return err
		}
		prompt := fmt.Sprintf("Sweep %d token(s) via the %s path?", len(plan.Legs), ov.Path)
		if !yesFlag && !ui.Confirm(prompt) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		sp = ui.NewSpinner("Submitting batch…")
		sp.Start()
		res, err := e.vault.ExecuteSweep(ctx, plan)
		sp.Stop()
		if err != nil {
			return err
		}
		if res.Refreshed > 0 {
			fmt.Println(ui.Meta(fmt.Sprintf("  %d quote(s) re-fetched before submission", res.Refreshed)))
		}
		fmt.Println(ui.Success(fmt.Sprintf("Swept %d token(s)", len(res.Swept))))
		fmt.Println(ui.Receipt(res.Result, e.chain, e.mode))

		p.Remove(res.Swept...)
		if len(p.Dust) > 0 {
			fmt.Println(ui.Meta(fmt.Sprintf("  %d token(s) left unswept", len(p.Dust))))
		}
		return nil
	},
}

func init() {
	f := sweepCmd.Flags()
	f.StringVar(&sweepVenue, "venue", vault.VenueZeroEx, "swap venue: 0x, router or swapper")
	f.StringVar(&sweepTarget, "target", vault.TargetETH, "sweep into eth or usdc")
	f.StringVar(&sweepMode, "mode", "auto", "submission path: auto, sponsored or direct")
	f.IntVar(&sweepSlippage, "slippage", 100, "slippage tolerance in basis points")
	f.BoolVar(&sweepSelect, "select", false, "choose which tokens to sweep")
	f.BoolVar(&sweepDryRun, "dry-run", false, "show the plan without submitting")
	f.BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation prompt")
}
