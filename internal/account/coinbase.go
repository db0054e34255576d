package account

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/userop"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// coinbaseAccount is the Coinbase Smart Wallet v1.1 with a single EOA owner.
type coinbaseAccount struct {
	client  *chain.EVMClient
	factory common.Address
}

type coinbaseCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

type signatureWrapper struct {
	OwnerIndex    *big.Int
	SignatureData []byte
}

var wrapperArgs = func() abi.Arguments {
	t, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "ownerIndex", Type: "uint256"},
		{Name: "signatureData", Type: "bytes"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: t}}
}()

// owners encodes the owner list the factory expects: [abi.encode(owner)].
func coinbaseOwners(owner common.Address) [][]byte {
	return [][]byte{common.LeftPadBytes(owner.Bytes(), 32)}
}

func (a *coinbaseAccount) Kind() Kind { return KindCoinbase }

func (a *coinbaseAccount) Address(ctx context.Context, owner common.Address, index uint64) (common.Address, error) {
	return contract.NewCaller(a.client, contract.CoinbaseFactory, a.factory).
		CallAddress(ctx, "getAddress", coinbaseOwners(owner), new(big.Int).SetUint64(index))
}

func (a *coinbaseAccount) InitCode(owner common.Address, index uint64) ([]byte, error) {
	data, err := contract.Pack(contract.CoinbaseFactory, "createAccount", coinbaseOwners(owner), new(big.Int).SetUint64(index))
	if err != nil {
		return nil, err
	}
	return withFactory(a.factory, data), nil
}

func (a *coinbaseAccount) EncodeExecute(calls []Call) ([]byte, error) {
	if len(calls) == 1 {
		c := calls[0]
		return contract.Pack(contract.CoinbaseAccount, "execute", c.To, value(c.Value), nonNilData(c.Data))
	}
	batch := make([]coinbaseCall, len(calls))
	for i, c := range calls {
		batch[i] = coinbaseCall{Target: c.To, Value: value(c.Value), Data: nonNilData(c.Data)}
	}
	return contract.Pack(contract.CoinbaseAccount, "executeBatch", batch)
}

func (a *coinbaseAccount) EncodeOwnerExecute(_ common.Address, calls []Call) ([]byte, error) {
	return a.EncodeExecute(calls)
}

// SignUserOp signs the raw userOpHash (the wallet validates it without a
// message prefix) and wraps it for owner index 0.
func (a *coinbaseAccount) SignUserOp(ctx context.Context, signer wallet.SignerAdapter, op *userop.Operation, entryPoint common.Address, chainID int64) ([]byte, error) {
	hs, ok := signer.(wallet.HashSigner)
	if !ok {
		return nil, fmt.Errorf("coinbase account: %w", ErrRawHashSigning)
	}
	sig, err := hs.SignHash(ctx, op.Hash(entryPoint, chainID))
	if err != nil {
		return nil, err
	}
	return wrapSignature(sig)
}

func (a *coinbaseAccount) DummySignature() []byte {
	sig, _ := wrapSignature(dummyECDSA)
	return sig
}

func wrapSignature(sig []byte) ([]byte, error) {
	return wrapperArgs.Pack(signatureWrapper{OwnerIndex: new(big.Int), SignatureData: sig})
}
