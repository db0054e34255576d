package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ErrRawSigningUnsupported is returned by every SignTransaction. Smart
// account transactions go through the account's own execution path.
var ErrRawSigningUnsupported = errors.New("raw transaction signing is not supported for smart accounts")

// SignerAdapter is the owner-signing surface a smart account sees.
type SignerAdapter interface {
	Address() common.Address
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error)
	SignTransaction(ctx context.Context, tx *types.Transaction) ([]byte, error)
}

// HashSigner is implemented by signers that can sign a 32-byte digest
// without any prefix. Some smart accounts validate raw userOpHash signatures.
type HashSigner interface {
	SignHash(ctx context.Context, hash common.Hash) ([]byte, error)
}

// KeystoreSigner signs with a private key loaded from the keystore.
type KeystoreSigner struct {
	addr    common.Address
	key     *ecdsa.PrivateKey
	chainID int64
}

// NewKeystoreSigner loads the key of a signing wallet. chainID fills typed
// data that omits domain.chainId.
func NewKeystoreSigner(w *Wallet, ks KeystoreBackend, chainID int64) (*KeystoreSigner, error) {
	key, err := loadKey(w, ks)
	if err != nil {
		return nil, err
	}
	return &KeystoreSigner{addr: crypto.PubkeyToAddress(key.PublicKey), key: key, chainID: chainID}, nil
}

func loadKey(w *Wallet, ks KeystoreBackend) (*ecdsa.PrivateKey, error) {
	if w.Type != TypeSigning {
		return nil, fmt.Errorf("wallet %q: %w", w.Name, ErrWatchOnly)
	}
	hexKey, err := ks.Retrieve(w.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}

// Address returns the signing EOA.
func (s *KeystoreSigner) Address() common.Address { return s.addr }

// SignMessage signs msg with EIP-191 (personal_sign).
func (s *KeystoreSigner) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	return signHash(eip191Hash(msg), s.key)
}

// SignTypedData signs an EIP-712 payload. The caller's value is not modified.
func (s *KeystoreSigner) SignTypedData(_ context.Context, td apitypes.TypedData) ([]byte, error) {
	prepared, err := PrepareTypedData(td, s.chainID)
	if err != nil {
		return nil, err
	}
	hash, err := TypedDataHash(prepared)
	if err != nil {
		return nil, fmt.Errorf("hashing typed data: %w", err)
	}
	return signHash(hash, s.key)
}

// SignHash signs a digest as-is.
func (s *KeystoreSigner) SignHash(_ context.Context, hash common.Hash) ([]byte, error) {
	return signHash(hash.Bytes(), s.key)
}

// SignTransaction always fails.
func (s *KeystoreSigner) SignTransaction(context.Context, *types.Transaction) ([]byte, error) {
	return nil, ErrRawSigningUnsupported
}

func signHash(hash []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	// Adjust V from 0/1 to 27/28 for Ethereum compatibility.
	sig[64] += 27
	return sig, nil
}
