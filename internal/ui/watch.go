package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

// Messages the watch command sends from its poller into the program.
type (
	// OverviewMsg carries a fresh vault status.
	OverviewMsg struct{ Overview *vault.Overview }
	// PortfolioMsg carries a fresh dust listing.
	PortfolioMsg struct{ Portfolio *vault.Portfolio }
	// FetchingMsg marks the start (true) or end (false) of a refresh.
	FetchingMsg bool
	// ErrMsg reports a failed refresh. The last good data stays on screen.
	ErrMsg struct{ Err error }
	// NoticeMsg replaces the control bar with a one-off message.
	NoticeMsg string
)

// WatchModel is the live vault dashboard.
type WatchModel struct {
	Chain   *chain.Chain
	Mode    string
	Refresh func() // wired to the poller; nil disables "r"
	Sweep   func() // nil disables "s"
	Switch  func() // toggles vault/owner view; nil disables "tab"

	overview  *vault.Overview
	portfolio *vault.Portfolio
	err       error
	fetching  bool
	updated   time.Time
	frame     int
	flash     string
	quitting  bool
	now       func() time.Time
}

// NewWatchModel returns a dashboard for c in mode. Callbacks are set on the
// returned value.
func NewWatchModel(c *chain.Chain, mode string, refresh func()) WatchModel {
	return WatchModel{Chain: c, Mode: mode, Refresh: refresh, now: time.Now}
}

type watchTickMsg struct{}

func watchSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg { return watchTickMsg{} })
}

func (m WatchModel) Init() tea.Cmd { return watchSpinTick() }

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.flash = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if m.Refresh != nil {
				m.Refresh()
				m.flash = "Refreshing…"
			}
		case "s":
			switch {
			case m.Sweep == nil:
			case m.portfolio == nil || len(m.portfolio.Dust) == 0:
				m.flash = "No dust to sweep"
			default:
				m.Sweep()
				m.flash = fmt.Sprintf("Sweeping %d token(s)…", len(m.portfolio.Dust))
			}
		case "tab":
			if m.Switch != nil {
				m.Switch()
				m.portfolio = nil
				m.flash = "Switching view…"
			}
		case "o":
			if addr := m.vaultAddress(); addr != "" && m.Chain.Explorer(m.Mode) != "" {
				if err := openBrowser(m.Chain.Explorer(m.Mode) + "/address/" + addr); err != nil {
					m.flash = "Could not open browser"
				} else {
					m.flash = "Opening in browser…"
				}
			}
		case "c":
			if addr := m.vaultAddress(); addr != "" {
				if err := copyToClipboard(addr); err != nil {
					m.flash = "Copy failed"
				} else {
					m.flash = "Copied " + TruncateAddr(addr)
				}
			}
		}

	case watchTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, watchSpinTick()

	case FetchingMsg:
		m.fetching = bool(msg)

	case OverviewMsg:
		m.overview = msg.Overview
		m.err = nil
		m.updated = m.clock()

	case PortfolioMsg:
		m.portfolio = msg.Portfolio
		m.err = nil
		m.updated = m.clock()

	case ErrMsg:
		m.err = msg.Err
		m.fetching = false

	case NoticeMsg:
		m.flash = string(msg)
	}
	return m, nil
}

func (m WatchModel) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func (m WatchModel) vaultAddress() string {
	if m.overview == nil || m.overview.Handle == nil {
		return ""
	}
	return m.overview.Handle.Address.Hex()
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder

	sb.WriteString(StyleTitle.Render(fmt.Sprintf("Vault watch · %s", m.Chain.Label(m.Mode))) + "\n")

	switch {
	case m.err != nil:
		sb.WriteString(Err(m.err.Error()) + "\n\n")
	case m.fetching:
		sb.WriteString(StyleInfo.Render(spinnerFrames[m.frame]+" refreshing…") + "\n\n")
	case !m.updated.IsZero():
		sb.WriteString(Meta("  updated "+m.updated.Format("15:04:05")) + "\n\n")
	default:
		sb.WriteString(Meta("  connecting…") + "\n\n")
	}

	if m.overview != nil {
		sb.WriteString(Overview(m.overview, m.Chain, m.Mode) + "\n")
	}
	if m.portfolio != nil {
		sb.WriteString(Portfolio(m.portfolio))
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
	} else {
		sb.WriteString(m.controls())
	}
	sb.WriteString("\n")
	return sb.String()
}

func (m WatchModel) controls() string {
	var keys [][2]string
	if m.Refresh != nil {
		keys = append(keys, [2]string{"r", "refresh"})
	}
	if m.Sweep != nil {
		keys = append(keys, [2]string{"s", "sweep"})
	}
	if m.Switch != nil {
		keys = append(keys, [2]string{"tab", "vault/owner"})
	}
	keys = append(keys, [2]string{"o", "open in explorer"}, [2]string{"c", "copy address"}, [2]string{"q", "quit"})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = StyleInfo.Render("[ "+k[0]+" ]") + Meta(" "+k[1])
	}
	return strings.Join(parts, "   ")
}
