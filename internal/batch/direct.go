package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Direct submits batches as a transaction the owner sends to the account.
type Direct struct {
	Client     *chain.EVMClient
	Resolver   *account.Resolver
	Transactor wallet.Transactor
	ChainID    int64
	Timeout    time.Duration
	Interval   time.Duration
	Log        *slog.Logger
}

func (d *Direct) Path() Path { return PathDirect }

// Submit switches the wallet to the expected chain, sends the transaction
// (retrying once after a wrong-network failure) and waits for the receipt.
func (d *Direct) Submit(ctx context.Context, h *account.Handle, b Batch) (res *Result, err error) {
	start := time.Now()
	defer func() { record(PathDirect, start, err) }()
	log := logging.Or(d.Log).With("path", PathDirect, "vault", h.Address.Hex())

	if err := b.Validate(); err != nil {
		return nil, err
	}
	strategy, err := d.Resolver.Strategy(h.Kind)
	if err != nil {
		return nil, err
	}
	code, err := d.Client.GetCode(ctx, h.Address)
	if err != nil {
		return nil, fmt.Errorf("reading vault code: %w", err)
	}
	if len(code) == 0 {
		return nil, ErrNotDeployed
	}
	data, err := strategy.EncodeOwnerExecute(h.Owner, b.Calls())
	if err != nil {
		return nil, fmt.Errorf("encoding calls: %w", err)
	}

	req := wallet.TxRequest{To: h.Address, Data: data}
	hash, err := Send(ctx, d.Transactor, d.ChainID, req, log)
	if err != nil {
		return nil, err
	}
	log.Info("transaction submitted", "tx", hash.Hex(), "calls", len(b))
	log.Debug("batch methods", "methods", b.Methods())

	waitCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	receipt, err := d.Client.WaitForReceipt(waitCtx, hash, d.Interval)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		reason := d.Client.RevertReason(ctx, chain.CallMsg{From: h.Owner, To: h.Address, Data: data})
		return nil, &RevertError{Reason: reason, Hash: hash}
	}
	log.Info("transaction confirmed", "tx", hash.Hex(), "block", receipt.BlockNumber)
	return &Result{Path: PathDirect, Sender: h.Address, TxHash: hash, Elapsed: time.Since(start)}, nil
}

// Send switches t to chainID and sends req. A wrong-network failure gets one
// more switch and one retry. Errors come back classified.
func Send(ctx context.Context, t wallet.Transactor, chainID int64, req wallet.TxRequest, log *slog.Logger) (common.Hash, error) {
	if err := t.SwitchChain(ctx, chainID); err != nil {
		return common.Hash{}, Classify(err)
	}
	hash, err := t.SendTransaction(ctx, req)
	if err == nil {
		return hash, nil
	}
	if err = Classify(err); !errors.Is(err, ErrWrongNetwork) {
		return common.Hash{}, err
	}
	logging.Or(log).Warn("wrong network, switching and retrying once", "chain_id", chainID)
	if err := t.SwitchChain(ctx, chainID); err != nil {
		return common.Hash{}, Classify(err)
	}
	if hash, err = t.SendTransaction(ctx, req); err != nil {
		return common.Hash{}, Classify(err)
	}
	return hash, nil
}
