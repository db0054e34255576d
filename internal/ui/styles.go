package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // swept, confirmed
	ColorWarning   = lipgloss.Color("#FFB800") // skipped, pending
	ColorError     = lipgloss.Color("#FF4444")
	ColorInfo      = lipgloss.Color("#4CC9F0")
	ColorAddress   = lipgloss.Color("#00B4D8")
	ColorValue     = lipgloss.Color("#FFFFFF")
	ColorMeta      = lipgloss.Color("#555555")
	ColorBorder    = lipgloss.Color("#1E3A5F")
	ColorChain     = lipgloss.Color("#0052FF") // base blue
	ColorHighlight = lipgloss.Color("#F15BB5")
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)
	StyleDim     = lipgloss.NewStyle().Foreground(ColorMeta)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleDanger = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(ColorError).
			Padding(0, 1)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)
)

// Banner returns the dustvault banner.
func Banner(version string) string {
	art := `
   ___           __              ____
  / _ \__ _____ / /_  _  _____ _/ / /_
 / // / // (_-</ __/ | |/ / _ ` + "`" + `/ / __/
/____/\_,_/___/\__/  |___/\_,_/_/\__/`

	tagline := StyleMeta.Render("  sweep wallet dust into ETH or USDC  ·  " + version)
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }
func Warn(msg string) string    { return StyleWarning.Render("⚠ " + msg) }
func Err(msg string) string     { return StyleError.Render("✗ " + msg) }
func Info(msg string) string    { return StyleInfo.Render("ℹ " + msg) }
func Hint(msg string) string    { return StyleMeta.Render("💡 " + msg) }

func Addr(a string) string      { return StyleAddress.Render(a) }
func Val(v string) string       { return StyleValue.Render(v) }
func Meta(m string) string      { return StyleMeta.Render(m) }
func ChainName(c string) string { return StyleChain.Render(c) }

// DangerBox frames content in a red border for irreversible actions.
func DangerBox(content string) string { return StyleDanger.Render(content) }

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// FormatUSD renders a dollar value; amounts under a cent show as "<$0.01".
func FormatUSD(v float64, priced bool) string {
	switch {
	case !priced:
		return "-"
	case v == 0:
		return "$0.00"
	case v < 0.01:
		return "<$0.01"
	case v >= 1000:
		return "$" + groupThousands(fmt.Sprintf("%.2f", v))
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func groupThousands(s string) string {
	whole, frac, _ := strings.Cut(s, ".")
	var sb strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if frac != "" {
		sb.WriteString("." + frac)
	}
	return sb.String()
}

// padR pads s on the right to n visible cells. Styled strings are measured
// without their escape codes.
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}
