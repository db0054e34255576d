package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/poll"
	"github.com/Mohsinsiddi/dustvault/internal/ui"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

// indexerLag is how long after a sweep the indexers are given before the
// holdings are fetched again.
const indexerLag = 8 * time.Second

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of the vault and its dust",
	Long: `Poll the vault status and dust holdings and render them live.

Keyboard controls:
  r      refresh now
  s      sweep all dust shown
  tab    switch between the vault and the owner wallet
  o      open the vault in the explorer
  c      copy the vault address
  q      quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		interval := cfg.PollEvery()
		if cmd.Flags().Changed("interval") {
			interval = watchInterval
		}

		w := &watcher{}
		w.poller = poll.New(interval, w.refresh, logger)
		e, err := openEnv(ctx, w.poller)
		if err != nil {
			return err
		}
		defer e.Close()
		w.env = e

		model := ui.NewWatchModel(e.chain, e.mode, w.poller.Refresh)
		model.Sweep = func() { go w.sweep(ctx) }
		model.Switch = w.toggle
		w.prog = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		w.poller.OnError = func(err error) { w.prog.Send(ui.ErrMsg{Err: err}) }

		w.poller.Start(ctx)
		defer w.poller.Stop()

		if _, err := w.prog.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("watch: %w", err)
		}
		return nil
	},
}

// watcher connects the poller, the vault service and the dashboard.
type watcher struct {
	env    *env
	poller *poll.Poller
	prog   *tea.Program

	mu        sync.Mutex
	owner     bool // viewing the owner wallet instead of the vault
	portfolio *vault.Portfolio
}

func (w *watcher) target(ctx context.Context) (common.Address, error) {
	w.mu.Lock()
	owner := w.owner
	w.mu.Unlock()
	if owner {
		return w.env.vault.Owner(), nil
	}
	h, err := w.env.vault.Account(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return h.Address, nil
}

// refresh is the poll function: vault status, then holdings.
func (w *watcher) refresh(ctx context.Context) error {
	w.prog.Send(ui.FetchingMsg(true))
	defer w.prog.Send(ui.FetchingMsg(false))

	ov, err := w.env.vault.Status(ctx)
	if err != nil {
		return err
	}
	w.prog.Send(ui.OverviewMsg{Overview: ov})

	addr, err := w.target(ctx)
	if err != nil {
		return err
	}
	p, err := w.env.vault.Holdings(ctx, addr)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.portfolio = p
	w.mu.Unlock()
	w.prog.Send(ui.PortfolioMsg{Portfolio: p})
	return nil
}

// toggle switches the holdings view and restarts polling on the new target.
func (w *watcher) toggle() {
	w.mu.Lock()
	w.owner = !w.owner
	w.portfolio = nil
	w.mu.Unlock()
	go w.poller.Restart(w.refresh)
}

// sweep sweeps the dust currently on screen. The vault re-reads balances
// under the poller gate before submitting. Swept tokens are dropped from a
// copy of the view; the holdings are fetched again after indexerLag.
func (w *watcher) sweep(ctx context.Context) {
	w.mu.Lock()
	p, owner := w.portfolio, w.owner
	w.mu.Unlock()
	if owner {
		w.prog.Send(ui.NoticeMsg("Switch to the vault view to sweep"))
		return
	}
	if p == nil || len(p.Dust) == 0 {
		return
	}

	_, res, err := w.env.vault.Sweep(ctx, p.Dust)
	if err != nil {
		w.prog.Send(ui.ErrMsg{Err: err})
		if !batch.Terminal(err) {
			w.poller.RefreshAfter(indexerLag)
		}
		return
	}

	next := p.Without(res.Swept...)
	w.mu.Lock()
	current := w.portfolio == p
	if current {
		w.portfolio = next
	}
	w.mu.Unlock()
	if current {
		w.prog.Send(ui.PortfolioMsg{Portfolio: next})
	}
	w.prog.Send(ui.NoticeMsg(fmt.Sprintf("Swept %d token(s) · %s", len(res.Swept), ui.TruncateAddr(res.TxHash.Hex()))))
	w.poller.RefreshAfter(indexerLag)
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default from config)")
}
