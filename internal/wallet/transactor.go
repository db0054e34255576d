package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrChainMismatch is returned when a transactor cannot reach the requested chain.
var ErrChainMismatch = errors.New("wallet is connected to a different chain")

// TxRequest is an ordinary EOA transaction.
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
	Gas   uint64 // 0 = estimate
}

// Transactor is the EOA's own ability to send transactions.
type Transactor interface {
	Address() common.Address
	ChainID(ctx context.Context) (int64, error)
	SwitchChain(ctx context.Context, chainID int64) error
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
}

// KeystoreTransactor signs locally and broadcasts over a node.
type KeystoreTransactor struct {
	addr   common.Address
	key    *ecdsa.PrivateKey
	client *chain.EVMClient
}

// NewKeystoreTransactor binds a signing wallet to a node client.
func NewKeystoreTransactor(w *Wallet, ks KeystoreBackend, client *chain.EVMClient) (*KeystoreTransactor, error) {
	key, err := loadKey(w, ks)
	if err != nil {
		return nil, err
	}
	return &KeystoreTransactor{addr: crypto.PubkeyToAddress(key.PublicKey), key: key, client: client}, nil
}

func (t *KeystoreTransactor) Address() common.Address { return t.addr }

func (t *KeystoreTransactor) ChainID(ctx context.Context) (int64, error) {
	return t.client.ChainID(ctx)
}

// SwitchChain succeeds only when the bound node already serves chainID.
func (t *KeystoreTransactor) SwitchChain(ctx context.Context, chainID int64) error {
	got, err := t.client.ChainID(ctx)
	if err != nil {
		return err
	}
	if got != chainID {
		return fmt.Errorf("%w: node serves %d, want %d", ErrChainMismatch, got, chainID)
	}
	return nil
}

// SendTransaction fills nonce, fees and gas, signs with the London signer and
// broadcasts.
func (t *KeystoreTransactor) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	chainID, err := t.client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := t.client.PendingNonce(ctx, t.addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	fees, err := t.client.SuggestFees(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fees: %w", err)
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	gas := req.Gas
	if gas == 0 {
		est, err := t.client.EstimateGas(ctx, chain.CallMsg{From: t.addr, To: req.To, Data: req.Data, Value: value})
		if err != nil {
			return common.Hash{}, err
		}
		gas = est * 12 / 10
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: fees.Tip,
		GasFeeCap: fees.MaxFee,
		Gas:       gas,
		To:        &req.To,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := types.SignTx(tx, types.NewLondonSigner(big.NewInt(chainID)), t.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return t.client.SendRawTransaction(ctx, raw)
}
