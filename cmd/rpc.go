package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/rpc"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <chain> <url>",
	Short: "Add a custom RPC URL for a chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainName, url := args[0], args[1]
		if _, err := chain.NewRegistry().GetByName(chainName); err != nil {
			return fmt.Errorf("unknown chain %q", chainName)
		}
		if err := cfg.AddRPC(chainName, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(chainName), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <chain> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", args[0], args[1])))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list [chain]",
	Short: "Check every RPC of a chain and show which one would be picked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			cfg.DefaultNetwork = args[0]
		}
		c, err := currentChain()
		if err != nil {
			return err
		}
		urls := rpcURLs(c)
		want := c.ID(cfg.NetworkMode)

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		sp := ui.NewSpinner(fmt.Sprintf("Checking %d %s RPCs…", len(urls), c.Label(cfg.NetworkMode)))
		sp.Start()
		eps := rpc.CheckAll(ctx, urls, want)
		sp.Stop()

		picked := ""
		if w, err := rpc.NewPicker(rpc.Algorithm(cfg.RPCAlgorithm)).Pick(eps); err == nil {
			picked = w.URL
		}

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 44},
			{Title: "LATENCY", Width: 9, Right: true},
			{Title: "BLOCK", Width: 11, Right: true},
			{Title: "STATUS", Width: 24},
		})
		for _, e := range eps {
			status, latency, block := "healthy", fmt.Sprintf("%dms", e.Latency.Milliseconds()), fmt.Sprint(e.BlockNumber)
			if e.Err != nil {
				status, latency, block = e.Err.Error(), "-", "-"
			}
			if e.URL == picked {
				status = "● " + cfg.RPCAlgorithm
			}
			t.AddRow(ui.Row{e.URL, latency, block, status})
		}
		fmt.Print(t.Render())
		if picked == "" {
			fmt.Println(ui.Err(rpc.ErrNoHealthyRPC.Error()))
		}
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm <fastest|round-robin|failover>",
	Short: "Set the RPC selection algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "fastest", "round-robin", "failover":
		default:
			return fmt.Errorf("invalid algorithm %q (choose fastest, round-robin or failover)", args[0])
		}
		cfg.RPCAlgorithm = args[0]
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC algorithm set to %q", args[0])))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcAlgorithmCmd)
}
