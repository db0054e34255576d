package batch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/Mohsinsiddi/dustvault/internal/userop"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Sponsored submits batches as paymaster-sponsored user operations. There
// is no fallback to the direct path.
type Sponsored struct {
	Client     *chain.EVMClient
	Bundler    *userop.Client
	Resolver   *account.Resolver
	Signer     wallet.SignerAdapter
	EntryPoint common.Address
	ChainID    int64
	Timeout    time.Duration
	Interval   time.Duration
	Log        *slog.Logger

	supported atomic.Bool
}

func (s *Sponsored) Path() Path { return PathSponsored }

// checkEntryPoint confirms once that the bundler accepts EntryPoint. A
// bundler that cannot list its entry points is not refused.
func (s *Sponsored) checkEntryPoint(ctx context.Context, log *slog.Logger) error {
	if s.supported.Load() {
		return nil
	}
	eps, err := s.Bundler.SupportedEntryPoints(ctx)
	if err != nil {
		log.Warn("bundler did not list entry points", "err", err)
		return nil
	}
	if !slices.Contains(eps, s.EntryPoint) {
		return fmt.Errorf("%w: %s", ErrEntryPointUnsupported, s.EntryPoint.Hex())
	}
	s.supported.Store(true)
	return nil
}

// Submit builds, sponsors, signs and sends one user operation, then waits
// for its receipt.
func (s *Sponsored) Submit(ctx context.Context, h *account.Handle, b Batch) (res *Result, err error) {
	start := time.Now()
	defer func() { record(PathSponsored, start, err) }()
	log := logging.Or(s.Log).With("path", PathSponsored, "sender", h.Address.Hex())

	if err := b.Validate(); err != nil {
		return nil, err
	}
	strategy, err := s.Resolver.Strategy(h.Kind)
	if err != nil {
		return nil, err
	}
	if err := s.checkEntryPoint(ctx, log); err != nil {
		return nil, err
	}

	op, err := s.build(ctx, strategy, h, b)
	if err != nil {
		return nil, err
	}

	// Fee data is fetched for this submission only.
	gp, err := s.Bundler.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	op.MaxFeePerGas = gp.MaxFeePerGas
	op.MaxPriorityFeePerGas = gp.MaxPriorityFeePerGas

	sp, err := s.Bundler.Sponsor(ctx, op, s.EntryPoint)
	if err != nil {
		log.Warn("sponsorship rejected", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSponsorshipRejected, err)
	}
	sp.Apply(op)

	sig, err := strategy.SignUserOp(ctx, s.Signer, op, s.EntryPoint, s.ChainID)
	if err != nil {
		return nil, Classify(err)
	}
	op.Signature = sig

	hash, err := s.Bundler.Send(ctx, op, s.EntryPoint)
	if err != nil {
		return nil, Classify(err)
	}
	log.Info("user operation submitted", "hash", hash.Hex(), "calls", len(b))
	log.Debug("batch methods", "methods", b.Methods())

	waitCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	receipt, err := s.Bundler.WaitForReceipt(waitCtx, hash, s.Interval)
	if err != nil {
		return nil, err
	}
	if !receipt.Success {
		return nil, &RevertError{Reason: receipt.Reason, Hash: hash}
	}
	log.Info("user operation confirmed", "tx", receipt.TxHash.Hex())
	return &Result{
		Path:       PathSponsored,
		Sender:     h.Address,
		UserOpHash: hash,
		TxHash:     receipt.TxHash,
		Elapsed:    time.Since(start),
	}, nil
}

// build assembles the unsigned operation with a placeholder signature for
// sponsorship simulation.
func (s *Sponsored) build(ctx context.Context, strategy account.Strategy, h *account.Handle, b Batch) (*userop.Operation, error) {
	code, err := s.Client.GetCode(ctx, h.Address)
	if err != nil {
		return nil, fmt.Errorf("reading vault code: %w", err)
	}
	var initCode []byte
	if len(code) == 0 {
		if initCode, err = strategy.InitCode(h.Owner, h.Index); err != nil {
			return nil, err
		}
	}
	nonce, err := userop.Nonce(ctx, s.Client, s.EntryPoint, h.Address)
	if err != nil {
		return nil, err
	}
	callData, err := strategy.EncodeExecute(b.Calls())
	if err != nil {
		return nil, fmt.Errorf("encoding calls: %w", err)
	}
	op := userop.New(h.Address, nonce, initCode, callData)
	op.Signature = strategy.DummySignature()
	return op, nil
}
