package wallet

import (
	"fmt"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
)

// Session is an unlocked wallet: the owner signer and its transactor.
type Session struct {
	Wallet     *Wallet
	Signer     SignerAdapter
	Transactor Transactor
}

// Open builds the signer and transactor for w. Watch-only wallets fail with
// ErrWatchOnly.
func Open(w *Wallet, ks KeystoreBackend, client *chain.EVMClient, chainID int64) (*Session, error) {
	switch w.Type {
	case TypeSigning:
		s, err := NewKeystoreSigner(w, ks, chainID)
		if err != nil {
			return nil, err
		}
		t, err := NewKeystoreTransactor(w, ks, client)
		if err != nil {
			return nil, err
		}
		return &Session{Wallet: w, Signer: s, Transactor: t}, nil
	case TypeRemote:
		r := NewRemoteSigner(w.RemoteURL, w.Addr(), chainID)
		return &Session{Wallet: w, Signer: r, Transactor: r}, nil
	case TypeWatchOnly:
		return nil, fmt.Errorf("wallet %q: %w", w.Name, ErrWatchOnly)
	default:
		return nil, fmt.Errorf("wallet %q: unknown type %q", w.Name, w.Type)
	}
}
