package batch

import (
	"fmt"

	"github.com/Mohsinsiddi/dustvault/internal/account"
)

// Path is how a batch reaches the chain.
type Path string

const (
	PathSponsored Path = "sponsored" // bundler + paymaster user operation
	PathDirect    Path = "direct"    // owner-paid transaction to the account
)

// Submit modes accepted in configuration.
const (
	ModeAuto      = "auto"
	ModeSponsored = "sponsored"
	ModeDirect    = "direct"
)

// Route picks the path for an account kind. In auto mode Coinbase and Safe
// accounts are sponsored and the simple account goes direct.
func Route(kind account.Kind, mode string) (Path, error) {
	switch mode {
	case ModeSponsored:
		return PathSponsored, nil
	case ModeDirect:
		return PathDirect, nil
	case ModeAuto, "":
	default:
		return "", fmt.Errorf("unknown submit mode %q", mode)
	}
	switch kind {
	case account.KindCoinbase, account.KindSafe:
		return PathSponsored, nil
	case account.KindSimple:
		return PathDirect, nil
	default:
		return "", fmt.Errorf("%w: %q", account.ErrUnknownKind, kind)
	}
}
