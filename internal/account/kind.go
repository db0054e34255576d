// Package account resolves the smart account (the "vault") an owner EOA
// controls, and encodes calls and signatures for each supported kind.
package account

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/dustvault/internal/wallet"
)

// Kind is a smart account implementation.
type Kind string

const (
	KindAuto     Kind = "auto" // detect from the connector
	KindCoinbase Kind = "coinbase"
	KindSimple   Kind = "simple"
	KindSafe     Kind = "safe"
)

// ParseKind parses a configured account kind. Empty means auto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAuto, nil
	case KindAuto, KindCoinbase, KindSimple, KindSafe:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Detection branches, in evaluation order.
const (
	BranchConnectorID  = "connector-id"
	BranchProviderFlag = "provider-flag"
	BranchDisplayName  = "display-name"
	BranchDefault      = "default"
	BranchConfigured   = "configured"
)

// Detection records which kind was chosen and why.
type Detection struct {
	Kind   Kind
	Branch string
}

var coinbaseConnectorIDs = map[string]bool{
	"coinbaseWalletSDK":   true,
	"coinbaseWallet":      true,
	"com.coinbase.wallet": true,
}

// Detect picks an account kind from connector metadata. The first matching
// rule wins; anything unrecognised falls through to the simple account.
func Detect(c wallet.Connector) Detection {
	switch {
	case coinbaseConnectorIDs[c.ID]:
		return Detection{Kind: KindCoinbase, Branch: BranchConnectorID}
	case c.IsCoinbaseWallet:
		return Detection{Kind: KindCoinbase, Branch: BranchProviderFlag}
	case strings.Contains(strings.ToLower(c.Name), "coinbase"):
		return Detection{Kind: KindCoinbase, Branch: BranchDisplayName}
	default:
		return Detection{Kind: KindSimple, Branch: BranchDefault}
	}
}
