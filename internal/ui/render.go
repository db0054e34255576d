package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/providers"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
	"github.com/ethereum/go-ethereum/common"
)

// HoldingsTable lists holdings with balance and USD value.
func HoldingsTable(hs []providers.Holding) *Table {
	t := NewTable([]Column{
		{Title: "TOKEN", Width: 10},
		{Title: "ADDRESS", Width: 13},
		{Title: "BALANCE", Width: 22, Right: true},
		{Title: "USD", Width: 12, Right: true},
	})
	for _, h := range hs {
		sym := h.Token.Symbol
		if h.Spam {
			sym += " ⚑"
		}
		t.AddRow(Row{sym, TruncateAddr(h.Token.Address.Hex()), h.Amount(), FormatUSD(h.USD, h.Priced)})
	}
	return t
}

// Portfolio renders a dust/kept split with totals and provider warnings.
func Portfolio(p *vault.Portfolio) string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(fmt.Sprintf("Dust · %s", TruncateAddr(p.Owner.Hex()))) + "\n")
	if len(p.Dust) == 0 {
		sb.WriteString(Meta("  no dust found") + "\n")
	} else {
		t := HoldingsTable(p.Dust)
		t.Footer = fmt.Sprintf("%d token(s) · %s · via %s", len(p.Dust), FormatUSD(p.DustUSD, true), p.Source)
		sb.WriteString(t.Render())
	}
	if len(p.Kept) > 0 {
		sb.WriteString("\n" + Meta(fmt.Sprintf("  %d holding(s) above the dust ceiling or excluded", len(p.Kept))) + "\n")
	}
	for _, w := range p.Warnings {
		sb.WriteString(Warn(w) + "\n")
	}
	return sb.String()
}

// PlanTable renders each leg's expected output and the skipped holdings.
func PlanTable(p *vault.Plan, outSymbol string, outDecimals int) string {
	var sb strings.Builder
	t := NewTable([]Column{
		{Title: "SELL", Width: 10},
		{Title: "AMOUNT", Width: 20, Right: true},
		{Title: "MIN " + strings.ToUpper(outSymbol), Width: 20, Right: true},
	})
	for _, leg := range p.Legs {
		minOut := "market"
		if leg.MinOut != nil {
			minOut = chain.FormatUnits(leg.MinOut, outDecimals)
		}
		t.AddRow(Row{leg.Holding.Token.Symbol, leg.Holding.Amount(), minOut})
	}
	if p.ExpectedOut != nil && p.ExpectedOut.Sign() > 0 {
		t.Footer = fmt.Sprintf("expected ≈ %s %s via %s", chain.FormatUnits(p.ExpectedOut, outDecimals), outSymbol, p.Venue)
	} else {
		t.Footer = "venue: " + p.Venue
	}
	sb.WriteString(t.Render())
	for _, s := range p.Skipped {
		sb.WriteString(Warn(fmt.Sprintf("skip %s: %s", s.Holding.Token.Symbol, s.Reason)) + "\n")
	}
	return sb.String()
}

// Overview renders the vault status card.
func Overview(o *vault.Overview, c *chain.Chain, mode string) string {
	deployed := StyleWarning.Render("counterfactual")
	if o.Deployed {
		deployed = StyleSuccess.Render("deployed")
	}
	return KeyValueBlock("Vault", [][2]string{
		{"Address", o.Handle.Address.Hex()},
		{"Kind", string(o.Handle.Kind)},
		{"Owner", o.Handle.Owner.Hex()},
		{"Network", c.Label(mode)},
		{"State", deployed},
		{"Vault ETH", chain.WeiToETH(o.VaultBalance)},
		{"Owner ETH", chain.WeiToETH(o.OwnerBalance)},
		{"Path", string(o.Path)},
	})
}

// Receipt renders a confirmed batch with an explorer link.
func Receipt(r *batch.Result, c *chain.Chain, mode string) string {
	pairs := [][2]string{{"Path", string(r.Path)}}
	if r.UserOpHash != (common.Hash{}) {
		pairs = append(pairs, [2]string{"UserOp", r.UserOpHash.Hex()})
	}
	pairs = append(pairs,
		[2]string{"Tx", r.TxHash.Hex()},
		[2]string{"Elapsed", r.Elapsed.Round(time.Millisecond).String()},
	)
	if c.Explorer(mode) != "" {
		pairs = append(pairs, [2]string{"Explorer", c.TxURL(mode, r.TxHash.Hex())})
	}
	return KeyValueBlock("Confirmed", pairs)
}
