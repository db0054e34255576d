// Package vault ties the account resolver, holdings providers, swap venues
// and batch submitters into the user-facing operations: status, holdings,
// deploy, deposit, sweep and withdraw.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/Mohsinsiddi/dustvault/internal/providers"
	"github.com/Mohsinsiddi/dustvault/internal/quote"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Swap venues.
const (
	VenueZeroEx  = "0x"
	VenueRouter  = "router"
	VenueSwapper = "swapper"
)

// Sweep targets.
const (
	TargetETH  = "eth"
	TargetUSDC = "usdc"
)

var (
	ErrAlreadyDeployed   = errors.New("vault is already deployed")
	ErrNothingToSweep    = errors.New("no dust to sweep")
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	ErrPathUnavailable   = errors.New("submission path not configured")
	ErrVenueUnavailable  = errors.New("swap venue not configured")
)

// Accounts resolves and inspects smart accounts. *account.Resolver
// implements it.
type Accounts interface {
	Resolve(ctx context.Context, signer wallet.SignerAdapter, c wallet.Connector, index uint64) (*account.Handle, error)
	Status(ctx context.Context, h *account.Handle) (*account.Status, error)
	Strategy(k account.Kind) (account.Strategy, error)
}

// Pricer values tokens by contract address.
type Pricer interface {
	TokenPrices(ctx context.Context, chainName string, tokens []common.Address) (map[common.Address]float64, error)
}

// Gate pauses background refreshes while a mutating operation runs.
// *poll.Poller implements it.
type Gate interface {
	Hold(ctx context.Context) (release func(), err error)
}

// Options wires a Service. Optional collaborators may be nil.
type Options struct {
	Chain     *chain.Chain
	Mode      string // "mainnet" | "testnet"
	Client    *chain.EVMClient
	Accounts  Accounts
	Session   *wallet.Session
	Connector wallet.Connector
	Index     uint64

	Holdings *providers.Registry
	Prices   Pricer

	Venue       string
	Target      string
	SlippageBps int
	Quotes      quote.Fetcher // venue 0x
	QuoteMaxAge time.Duration
	Router      *quote.Router  // venue router
	Swapper     common.Address // venue swapper

	Submitters []batch.Submitter
	SubmitMode string

	DustMaxUSD     float64
	IncludeSpam    bool
	WithdrawBuffer *big.Int

	Gate     Gate
	Timeout  time.Duration // owner transaction confirmation
	Interval time.Duration // receipt poll interval
	Log      *slog.Logger
}

// Service runs vault operations for one wallet session on one chain.
type Service struct {
	opts  Options
	subs  map[batch.Path]batch.Submitter
	guard *quote.Guard
	log   *slog.Logger
	now   func() time.Time

	mu     sync.Mutex
	handle *account.Handle
}

// New validates the required collaborators and returns a Service.
func New(opts Options) (*Service, error) {
	switch {
	case opts.Chain == nil:
		return nil, errors.New("vault: chain is required")
	case opts.Client == nil:
		return nil, errors.New("vault: chain client is required")
	case opts.Accounts == nil:
		return nil, errors.New("vault: account resolver is required")
	case opts.Session == nil || opts.Session.Signer == nil:
		return nil, fmt.Errorf("vault: %w", account.ErrNoSigner)
	}
	if opts.Venue == "" {
		opts.Venue = VenueZeroEx
	}
	if opts.Target == "" {
		opts.Target = TargetETH
	}
	if opts.WithdrawBuffer == nil {
		opts.WithdrawBuffer = new(big.Int)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.TxConfirmTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = config.ReceiptPollInterval
	}

	s := &Service{
		opts: opts,
		subs: make(map[batch.Path]batch.Submitter, len(opts.Submitters)),
		log:  logging.Or(opts.Log).With("component", "vault"),
		now:  time.Now,
	}
	for _, sub := range opts.Submitters {
		s.subs[sub.Path()] = sub
	}
	if opts.Quotes != nil {
		s.guard = quote.NewGuard(opts.Quotes, opts.QuoteMaxAge)
	}
	return s, nil
}

// Owner is the connected wallet address.
func (s *Service) Owner() common.Address { return s.opts.Session.Signer.Address() }

// Account resolves the vault for the session. The handle is derived once per
// Service; the address is a pure function of owner, index and kind.
func (s *Service) Account(ctx context.Context) (*account.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return s.handle, nil
	}
	h, err := s.opts.Accounts.Resolve(ctx, s.opts.Session.Signer, s.opts.Connector, s.opts.Index)
	if err != nil {
		return nil, err
	}
	s.handle = h
	return h, nil
}

// Overview is a point-in-time view of the vault.
type Overview struct {
	Handle       *account.Handle
	Deployed     bool
	VaultBalance *big.Int
	OwnerBalance *big.Int
	Path         batch.Path
	CheckedAt    time.Time
}

// Status reads deployment state and ETH balances.
func (s *Service) Status(ctx context.Context) (*Overview, error) {
	h, err := s.Account(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.opts.Accounts.Status(ctx, h)
	if err != nil {
		return nil, err
	}
	ownerBal, err := s.opts.Client.GetBalance(ctx, h.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner balance: %w", err)
	}
	path, err := batch.Route(h.Kind, s.opts.SubmitMode)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Handle:       h,
		Deployed:     st.Deployed,
		VaultBalance: st.Balance,
		OwnerBalance: ownerBal,
		Path:         path,
		CheckedAt:    st.CheckedAt,
	}, nil
}

// submitter picks the path for the vault's kind and the configured mode.
func (s *Service) submitter(h *account.Handle) (batch.Submitter, error) {
	path, err := batch.Route(h.Kind, s.opts.SubmitMode)
	if err != nil {
		return nil, err
	}
	sub, ok := s.subs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathUnavailable, path)
	}
	return sub, nil
}

// hold pauses the gate, if any, for the duration of a mutation.
func (s *Service) hold(ctx context.Context) (func(), error) {
	if s.opts.Gate == nil {
		return func() {}, nil
	}
	return s.opts.Gate.Hold(ctx)
}

// MaxWithdrawable is balance minus buffer, floored at zero. The buffer keeps
// ETH for gas on the direct path.
func MaxWithdrawable(balance, buffer *big.Int) *big.Int {
	if balance == nil || balance.Sign() <= 0 {
		return new(big.Int)
	}
	if buffer == nil || buffer.Sign() <= 0 {
		return new(big.Int).Set(balance)
	}
	if balance.Cmp(buffer) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(balance, buffer)
}
