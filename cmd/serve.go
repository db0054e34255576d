package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/proxy"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the 0x quote proxy",
	Long: `Serve GET /api/0x/quote, forwarding requests to the 0x swap API with the
configured key so browser clients never see it. Also serves /healthz and
Prometheus metrics on /metrics.

Point other dustvault installs at it with:
  dustvault config set quote-url http://host:8787/api/0x`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.FeatureProxy); err != nil {
			return err
		}
		opts := proxy.FromConfig(cfg, logger)
		if serveListen != "" {
			opts.Listen = serveListen
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println(ui.Info("quote proxy listening on " + ui.Val(opts.Listen)))
		return proxy.New(opts).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config)")
}
