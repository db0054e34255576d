package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Failure classes.
var (
	ErrUserRejected          = errors.New("user rejected the request")
	ErrWrongNetwork          = errors.New("wallet is on the wrong network")
	ErrSponsorshipRejected   = errors.New("paymaster rejected sponsorship")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrNotDeployed           = errors.New("vault is not deployed")
	ErrEntryPointUnsupported = errors.New("bundler does not support the entry point")
)

// Wallet JSON-RPC codes (EIP-1193 / EIP-3326).
const (
	codeUserRejected  = 4001
	codeUnknownChain  = 4902
	codeChainMismatch = 4901
)

// RevertError is an on-chain or simulated revert with the raw reason.
type RevertError struct {
	Reason string
	Hash   common.Hash // tx or user operation hash, zero if never mined
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

// Classify maps err onto the failure taxonomy. The original error stays in
// the chain. Unrecognised errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rev *RevertError
	if errors.Is(err, ErrUserRejected) || errors.Is(err, ErrWrongNetwork) ||
		errors.Is(err, ErrSponsorshipRejected) || errors.As(err, &rev) {
		return err
	}
	if errors.Is(err, wallet.ErrChainMismatch) {
		return fmt.Errorf("%w: %w", ErrWrongNetwork, err)
	}

	if re, ok := chain.AsRPCError(err); ok {
		switch re.Code {
		case codeUserRejected:
			return fmt.Errorf("%w: %w", ErrUserRejected, err)
		case codeUnknownChain, codeChainMismatch:
			return fmt.Errorf("%w: %w", ErrWrongNetwork, err)
		}
		if isRevert(re.Message) {
			return &RevertError{Reason: chain.ExtractRevertReason(re)}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied"):
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	case strings.Contains(msg, "does not match the target chain") ||
		strings.Contains(msg, "chain mismatch") ||
		strings.Contains(msg, "wrong network"):
		return fmt.Errorf("%w: %w", ErrWrongNetwork, err)
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	}
	return err
}

func isRevert(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "execution reverted") || strings.Contains(m, "reverted")
}

// Terminal reports whether err is a final answer from the wallet, the
// paymaster or the chain. Any other failure, a receipt timeout included, may
// leave a transaction in flight.
func Terminal(err error) bool {
	var rev *RevertError
	return errors.Is(err, ErrUserRejected) || errors.Is(err, ErrSponsorshipRejected) || errors.As(err, &rev)
}
