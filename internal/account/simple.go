package account

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/userop"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// simpleAccount is the eth-infinitism SimpleAccount (v0.6).
type simpleAccount struct {
	client  *chain.EVMClient
	factory common.Address
}

func (a *simpleAccount) Kind() Kind { return KindSimple }

func (a *simpleAccount) Address(ctx context.Context, owner common.Address, index uint64) (common.Address, error) {
	return contract.NewCaller(a.client, contract.SimpleFactory, a.factory).
		CallAddress(ctx, "getAddress", owner, new(big.Int).SetUint64(index))
}

func (a *simpleAccount) InitCode(owner common.Address, index uint64) ([]byte, error) {
	data, err := contract.Pack(contract.SimpleFactory, "createAccount", owner, new(big.Int).SetUint64(index))
	if err != nil {
		return nil, err
	}
	return withFactory(a.factory, data), nil
}

// EncodeExecute uses execute for one call and executeBatch(address[],bytes[])
// otherwise. The v0.6 batch entry point carries no values, so a batch that
// sends ETH is refused.
func (a *simpleAccount) EncodeExecute(calls []Call) ([]byte, error) {
	if len(calls) == 1 {
		c := calls[0]
		return contract.Pack(contract.SimpleAccount, "execute", c.To, value(c.Value), nonNilData(c.Data))
	}
	dest := make([]common.Address, len(calls))
	data := make([][]byte, len(calls))
	for i, c := range calls {
		if c.Value != nil && c.Value.Sign() != 0 {
			return nil, fmt.Errorf("simple account call %d: %w", i, ErrBatchValue)
		}
		dest[i], data[i] = c.To, nonNilData(c.Data)
	}
	return contract.Pack(contract.SimpleAccount, "executeBatch", dest, data)
}

// The owner may call execute/executeBatch directly.
func (a *simpleAccount) EncodeOwnerExecute(_ common.Address, calls []Call) ([]byte, error) {
	return a.EncodeExecute(calls)
}

// SignUserOp signs the userOpHash with personal_sign.
func (a *simpleAccount) SignUserOp(ctx context.Context, signer wallet.SignerAdapter, op *userop.Operation, entryPoint common.Address, chainID int64) ([]byte, error) {
	hash := op.Hash(entryPoint, chainID)
	return signer.SignMessage(ctx, hash.Bytes())
}

func (a *simpleAccount) DummySignature() []byte { return dummyECDSA }

func nonNilData(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
