package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrReceiptTimeout is returned when a transaction is not mined before the deadline.
var ErrReceiptTimeout = errors.New("timed out waiting for receipt")

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	rpc *RPCClient
}

// CallMsg describes an eth_call / eth_estimateGas request.
type CallMsg struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

func (m CallMsg) toArg() map[string]interface{} {
	arg := map[string]interface{}{
		"to":   m.To.Hex(),
		"data": hexutil.Encode(m.Data),
	}
	if m.From != (common.Address{}) {
		arg["from"] = m.From.Hex()
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		arg["value"] = (*hexutil.Big)(m.Value)
	}
	return arg
}

// TxReceipt is a mined transaction receipt.
type TxReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      uint64 // 1 = success, 0 = reverted
	From        common.Address
	To          *common.Address
}

// Succeeded reports whether the transaction executed without reverting.
func (r *TxReceipt) Succeeded() bool { return r.Status == 1 }

type rawReceipt struct {
	TransactionHash common.Hash     `json:"transactionHash"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	Status          hexutil.Uint64  `json:"status"`
	From            common.Address  `json:"from"`
	To              *common.Address `json:"to"`
}

func (r *rawReceipt) toReceipt() *TxReceipt {
	return &TxReceipt{
		TxHash:      r.TransactionHash,
		BlockNumber: uint64(r.BlockNumber),
		GasUsed:     uint64(r.GasUsed),
		Status:      uint64(r.Status),
		From:        r.From,
		To:          r.To,
	}
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{rpc: NewRPCClient(url)}
}

// URL returns the node endpoint.
func (c *EVMClient) URL() string { return c.rpc.URL() }

// RPC exposes the underlying JSON-RPC client.
func (c *EVMClient) RPC() *RPCClient { return c.rpc }

// ChainID returns the chain id reported by the node.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Big
	if err := c.rpc.Call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return id.ToInt().Int64(), nil
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.rpc.Call(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Ping measures round-trip latency with eth_blockNumber.
func (c *EVMClient) Ping(ctx context.Context) (time.Duration, uint64, error) {
	start := time.Now()
	n, err := c.BlockNumber(ctx)
	return time.Since(start), n, err
}

// GetBalance returns the native balance of an address in wei.
func (c *EVMClient) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var bal hexutil.Big
	if err := c.rpc.Call(ctx, &bal, "eth_getBalance", addr.Hex(), "latest"); err != nil {
		return nil, err
	}
	return bal.ToInt(), nil
}

// GetCode returns the deployed bytecode at addr (empty for EOAs and
// undeployed counterfactual accounts).
func (c *EVMClient) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	var code hexutil.Bytes
	if err := c.rpc.Call(ctx, &code, "eth_getCode", addr.Hex(), "latest"); err != nil {
		return nil, err
	}
	return code, nil
}

// CallContract performs a read-only eth_call.
func (c *EVMClient) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.rpc.Call(ctx, &out, "eth_call", msg.toArg(), "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	var n hexutil.Uint64
	if err := c.rpc.Call(ctx, &n, "eth_estimateGas", msg.toArg()); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// PendingNonce returns the next nonce for an address, including pending txs.
func (c *EVMClient) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	var n hexutil.Uint64
	if err := c.rpc.Call(ctx, &n, "eth_getTransactionCount", addr.Hex(), "pending"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.Call(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// GetTransactionReceipt returns the receipt for hash, or nil if it is still pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*TxReceipt, error) {
	var raw *rawReceipt
	if err := c.rpc.Call(ctx, &raw, "eth_getTransactionReceipt", hash.Hex()); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.toReceipt(), nil
}

// WaitForReceipt polls every interval until the receipt is available or ctx
// is done. A ctx deadline surfaces as ErrReceiptTimeout.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*TxReceipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		r, err := c.GetTransactionReceipt(ctx, hash)
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

// RevertReason replays msg with eth_call and returns the revert reason the
// node reports, or "" when the call succeeds.
func (c *EVMClient) RevertReason(ctx context.Context, msg CallMsg) string {
	_, err := c.CallContract(ctx, msg)
	if err == nil {
		return ""
	}
	if re, ok := AsRPCError(err); ok {
		return ExtractRevertReason(re)
	}
	return err.Error()
}

// ExtractRevertReason pulls a human-readable reason out of an RPC error,
// decoding Error(string) revert data when present.
func ExtractRevertReason(re *RPCError) string {
	if len(re.Data) > 0 {
		var data string
		if err := json.Unmarshal(re.Data, &data); err == nil {
			if b, err := hexutil.Decode(data); err == nil {
				if reason, err := abi.UnpackRevert(b); err == nil {
					return reason
				}
			}
		}
	}
	msg := re.Message
	if idx := strings.Index(msg, "execution reverted: "); idx >= 0 {
		return msg[idx+len("execution reverted: "):]
	}
	return msg
}
