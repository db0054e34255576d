// Package batch builds ordered call batches for a smart account and submits
// them on the sponsored (user operation) or direct (owner transaction) path.
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// ErrApprovalOrder is returned when a call spends an allowance that no
// earlier approve in the batch grants.
var ErrApprovalOrder = errors.New("spend is not preceded by a sufficient approve")

// Allowance is a token amount a call pulls from the account through spender.
type Allowance struct {
	Token   common.Address
	Spender common.Address
	Amount  *big.Int
}

// Call is one step of a batch.
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
	Spends *Allowance // set when the call consumes an ERC-20 allowance
	Label  string
}

// Batch is an ordered list of calls executed atomically by the account.
type Batch []Call

// Approve grants spender an allowance of amount.
func Approve(token, spender common.Address, amount *big.Int) Call {
	return Call{
		Target: token,
		Data:   contract.MustPack(contract.ERC20, "approve", spender, amount),
		Label:  "approve",
	}
}

// Transfer sends amount of token to to.
func Transfer(token, to common.Address, amount *big.Int) Call {
	return Call{
		Target: token,
		Data:   contract.MustPack(contract.ERC20, "transfer", to, amount),
		Label:  "transfer",
	}
}

// TransferETH sends wei to to.
func TransferETH(to common.Address, wei *big.Int) Call {
	return Call{Target: to, Value: wei, Label: "send ETH"}
}

// SwapViaSwapper calls the swapper contract's swapTokenForETH.
func SwapViaSwapper(swapper, token common.Address, amount *big.Int) Call {
	return Call{
		Target: swapper,
		Data:   contract.MustPack(contract.Swapper, "swapTokenForETH", token, amount),
		Spends: &Allowance{Token: token, Spender: swapper, Amount: amount},
		Label:  "swap",
	}
}

// SwapViaRouter swaps amountIn along path on a UniswapV2-compatible router.
// toETH unwraps the output to native ETH.
func SwapViaRouter(router common.Address, path []common.Address, amountIn, minOut *big.Int, recipient common.Address, deadline int64, toETH bool) Call {
	method := "swapExactTokensForTokens"
	if toETH {
		method = "swapExactTokensForETH"
	}
	return Call{
		Target: router,
		Data:   contract.MustPack(contract.UniswapV2Router, method, amountIn, minOut, path, recipient, big.NewInt(deadline)),
		Spends: &Allowance{Token: path[0], Spender: router, Amount: amountIn},
		Label:  "swap",
	}
}

// SwapViaQuote executes a swap transaction returned by an aggregator quote.
func SwapViaQuote(target common.Address, data []byte, value *big.Int, sellToken, allowanceTarget common.Address, sellAmount *big.Int) Call {
	c := Call{Target: target, Value: value, Data: data, Label: "swap"}
	if allowanceTarget != (common.Address{}) {
		c.Spends = &Allowance{Token: sellToken, Spender: allowanceTarget, Amount: sellAmount}
	}
	return c
}

// ApproveAndSwap returns the approve call followed by swap.
func ApproveAndSwap(swap Call) Batch {
	if swap.Spends == nil {
		return Batch{swap}
	}
	return Batch{Approve(swap.Spends.Token, swap.Spends.Spender, swap.Spends.Amount), swap}
}

// Validate checks that every spend is preceded by an approve of the same
// token to the same spender for at least the spent amount. Approvals are
// consumed as they are spent.
func (b Batch) Validate() error {
	if len(b) == 0 {
		return errors.New("empty batch")
	}
	type key struct{ token, spender common.Address }
	granted := make(map[key]*big.Int)

	for i, c := range b {
		if spender, amount, ok := decodeApprove(c.Data); ok {
			granted[key{c.Target, spender}] = amount
		}
		if c.Spends == nil {
			continue
		}
		k := key{c.Spends.Token, c.Spends.Spender}
		have, ok := granted[k]
		if !ok || have.Cmp(c.Spends.Amount) < 0 {
			return fmt.Errorf("%w: call %d (%s) spends %s of %s via %s",
				ErrApprovalOrder, i, c.Label, c.Spends.Amount, c.Spends.Token.Hex(), c.Spends.Spender.Hex())
		}
		granted[k] = new(big.Int).Sub(have, c.Spends.Amount)
	}
	return nil
}

// Calls converts the batch to account calls.
func (b Batch) Calls() []account.Call {
	out := make([]account.Call, len(b))
	for i, c := range b {
		out[i] = account.Call{To: c.Target, Value: c.Value, Data: c.Data}
	}
	return out
}

// Methods names the method each call invokes, in order.
func (b Batch) Methods() []string {
	out := make([]string, len(b))
	for i, c := range b {
		out[i] = contract.MethodName(c.Data)
	}
	return out
}

// Value is the total ETH the batch sends out of the account.
func (b Batch) Value() *big.Int {
	total := new(big.Int)
	for _, c := range b {
		if c.Value != nil {
			total.Add(total, c.Value)
		}
	}
	return total
}

func decodeApprove(data []byte) (common.Address, *big.Int, bool) {
	if len(data) != 4+64 || !bytes.Equal(data[:4], contract.SelectorApprove[:]) {
		return common.Address{}, nil, false
	}
	return common.BytesToAddress(data[4:36]), new(big.Int).SetBytes(data[36:68]), true
}
