package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Fees holds EIP-1559 fee parameters for a new transaction.
type Fees struct {
	BaseFee  *big.Int // nil on legacy chains
	Tip      *big.Int
	MaxFee   *big.Int
	GasPrice *big.Int // eth_gasPrice, always set
}

var minTip = big.NewInt(1_000_000) // 0.001 gwei; L2 tips are tiny

// GasPrice returns eth_gasPrice.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	var gp hexutil.Big
	if err := c.rpc.Call(ctx, &gp, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return gp.ToInt(), nil
}

// BaseFee returns the latest block's base fee, or nil before London.
func (c *EVMClient) BaseFee(ctx context.Context) (*big.Int, error) {
	var head struct {
		BaseFeePerGas *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := c.rpc.Call(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	if head.BaseFeePerGas == nil {
		return nil, nil
	}
	return head.BaseFeePerGas.ToInt(), nil
}

// SuggestFees derives fee caps from the current base fee:
// maxFee = 2*baseFee + tip. The tip comes from eth_maxPriorityFeePerGas when
// the node supports it.
func (c *EVMClient) SuggestFees(ctx context.Context) (*Fees, error) {
	gp, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	fees := &Fees{GasPrice: gp}

	base, err := c.BaseFee(ctx)
	if err != nil || base == nil {
		fees.Tip = new(big.Int).Set(gp)
		fees.MaxFee = new(big.Int).Set(gp)
		return fees, nil
	}
	fees.BaseFee = base

	var tip hexutil.Big
	if err := c.rpc.Call(ctx, &tip, "eth_maxPriorityFeePerGas"); err == nil {
		fees.Tip = tip.ToInt()
	} else {
		fees.Tip = new(big.Int).Sub(gp, base)
	}
	if fees.Tip.Cmp(minTip) < 0 {
		fees.Tip = new(big.Int).Set(minTip)
	}
	fees.MaxFee = new(big.Int).Add(new(big.Int).Mul(base, big.NewInt(2)), fees.Tip)
	return fees, nil
}

// WeiToGwei converts a Wei value to Gwei as float64.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetFloat64(1e9),
	).Float64()
	return f
}
