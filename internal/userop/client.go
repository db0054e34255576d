package userop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrReceiptTimeout is returned when a user operation is not included in time.
var ErrReceiptTimeout = errors.New("timed out waiting for user operation receipt")

// GasPrice is a bundler fee suggestion.
type GasPrice struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// GasEstimate holds the three gas limits of a user operation.
type GasEstimate struct {
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
}

// Sponsorship is a paymaster's approval of an operation.
type Sponsorship struct {
	PaymasterAndData []byte
	GasEstimate
}

// Apply writes the paymaster data and gas limits into op.
func (s *Sponsorship) Apply(op *Operation) {
	op.PaymasterAndData = s.PaymasterAndData
	if s.CallGasLimit != nil {
		op.CallGasLimit = s.CallGasLimit
	}
	if s.VerificationGasLimit != nil {
		op.VerificationGasLimit = s.VerificationGasLimit
	}
	if s.PreVerificationGas != nil {
		op.PreVerificationGas = s.PreVerificationGas
	}
}

// Receipt is the inclusion result of a user operation.
type Receipt struct {
	UserOpHash    common.Hash
	Success       bool
	Reason        string
	TxHash        common.Hash
	ActualGasCost *big.Int
}

// Client talks to a bundler that also serves the paymaster namespace
// (Pimlico-style). Gas prices are fetched per call and never cached.
type Client struct {
	rpc *chain.RPCClient
	log *slog.Logger
}

// NewClient creates a bundler client for url.
func NewClient(url string, log *slog.Logger) *Client {
	return &Client{rpc: chain.NewRPCClient(url), log: logging.Or(log)}
}

type rpcGasPrice struct {
	MaxFeePerGas         hexutil.Big `json:"maxFeePerGas"`
	MaxPriorityFeePerGas hexutil.Big `json:"maxPriorityFeePerGas"`
}

// GasPrice returns the bundler's "fast" fee tier.
func (c *Client) GasPrice(ctx context.Context) (*GasPrice, error) {
	var out struct {
		Slow     rpcGasPrice `json:"slow"`
		Standard rpcGasPrice `json:"standard"`
		Fast     rpcGasPrice `json:"fast"`
	}
	if err := c.rpc.Call(ctx, &out, "pimlico_getUserOperationGasPrice"); err != nil {
		return nil, fmt.Errorf("bundler gas price: %w", err)
	}
	return &GasPrice{
		MaxFeePerGas:         out.Fast.MaxFeePerGas.ToInt(),
		MaxPriorityFeePerGas: out.Fast.MaxPriorityFeePerGas.ToInt(),
	}, nil
}

type rpcGasEstimate struct {
	CallGasLimit         *hexutil.Big `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big `json:"preVerificationGas"`
}

func (e rpcGasEstimate) toEstimate() GasEstimate {
	return GasEstimate{
		CallGasLimit:         bigOrNil(e.CallGasLimit),
		VerificationGasLimit: bigOrNil(e.VerificationGasLimit),
		PreVerificationGas:   bigOrNil(e.PreVerificationGas),
	}
}

func bigOrNil(b *hexutil.Big) *big.Int {
	if b == nil {
		return nil
	}
	return b.ToInt()
}

// Sponsor requests paymaster sponsorship. Errors are returned unchanged so
// the caller can classify the rejection.
func (c *Client) Sponsor(ctx context.Context, op *Operation, entryPoint common.Address) (*Sponsorship, error) {
	var out struct {
		PaymasterAndData hexutil.Bytes `json:"paymasterAndData"`
		rpcGasEstimate
	}
	if err := c.rpc.Call(ctx, &out, "pm_sponsorUserOperation", op, entryPoint.Hex()); err != nil {
		return nil, err
	}
	if len(out.PaymasterAndData) == 0 {
		return nil, errors.New("paymaster returned empty paymasterAndData")
	}
	return &Sponsorship{PaymasterAndData: out.PaymasterAndData, GasEstimate: out.rpcGasEstimate.toEstimate()}, nil
}

// Send submits a signed operation and returns its hash.
func (c *Client) Send(ctx context.Context, op *Operation, entryPoint common.Address) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.Call(ctx, &hash, "eth_sendUserOperation", op, entryPoint.Hex()); err != nil {
		return common.Hash{}, err
	}
	c.log.Debug("user operation sent", "hash", hash.Hex(), "sender", op.Sender.Hex())
	return hash, nil
}

// Receipt returns the receipt for hash, or nil while the operation is pending.
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var raw *struct {
		UserOpHash    common.Hash  `json:"userOpHash"`
		Success       bool         `json:"success"`
		Reason        string       `json:"reason"`
		ActualGasCost *hexutil.Big `json:"actualGasCost"`
		Receipt       struct {
			TransactionHash common.Hash `json:"transactionHash"`
		} `json:"receipt"`
	}
	if err := c.rpc.Call(ctx, &raw, "eth_getUserOperationReceipt", hash.Hex()); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return &Receipt{
		UserOpHash:    raw.UserOpHash,
		Success:       raw.Success,
		Reason:        raw.Reason,
		TxHash:        raw.Receipt.TransactionHash,
		ActualGasCost: bigOrNil(raw.ActualGasCost),
	}, nil
}

// WaitForReceipt polls until the operation is included or ctx is done.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		r, err := c.Receipt(ctx, hash)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, hash.Hex())
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SupportedEntryPoints lists the entry points the bundler accepts.
func (c *Client) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	if err := c.rpc.Call(ctx, &out, "eth_supportedEntryPoints"); err != nil {
		return nil, err
	}
	return out, nil
}

// Nonce reads the sender's nonce for key 0 from the EntryPoint.
func Nonce(ctx context.Context, client *chain.EVMClient, entryPoint, sender common.Address) (*big.Int, error) {
	n, err := contract.NewCaller(client, contract.EntryPoint, entryPoint).CallBig(ctx, "getNonce", sender, new(big.Int))
	if err != nil {
		return nil, fmt.Errorf("entry point nonce: %w", err)
	}
	return n, nil
}
