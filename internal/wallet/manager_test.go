package wallet_test

import (
	"strings"
	"testing"

	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
)

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	err := mgr.Add("mywallet", &wallet.Wallet{
		Address: "0x1234567890abcdef1234567890abcdef12345678",
		Type:    wallet.TypeWatchOnly,
	})
	require.NoError(t, err)

	w, err := mgr.Get("mywallet")
	require.NoError(t, err)
	assert.Equal(t, "mywallet", w.Name)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.False(t, w.CanSign())
}

func TestAddChecksumsAddress(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.Add("w", &wallet.Wallet{
		Address: "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		Type:    wallet.TypeWatchOnly,
	}))
	w, _ := mgr.Get("w")
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address)
}

func TestAddInvalidAddress(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	err := mgr.Add("bad", &wallet.Wallet{Address: "0x123...", Type: wallet.TypeWatchOnly})
	assert.Error(t, err)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.Add("dup", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly}))
	err := mgr.Add("dup", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly})
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestAddRemoteWalletWithConnector(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.Add("cb", &wallet.Wallet{
		Address:   addrA,
		Type:      wallet.TypeRemote,
		RemoteURL: "http://127.0.0.1:1248",
		Connector: wallet.Connector{ID: "coinbaseWalletSDK", Name: "Coinbase Wallet"},
	}))

	w, err := mgr.Get("cb")
	require.NoError(t, err)
	assert.True(t, w.CanSign())
	assert.Equal(t, "coinbaseWalletSDK", w.Connector.ID)
}

func TestSetConnector(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.Add("w", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly}))
	require.NoError(t, mgr.SetConnector("w", wallet.Connector{IsCoinbaseWallet: true}))

	w, _ := mgr.Get("w")
	assert.True(t, w.Connector.IsCoinbaseWallet)
	assert.ErrorIs(t, mgr.SetConnector("ghost", wallet.Connector{}), wallet.ErrWalletNotFound)
}

func TestAddSigningWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	err := mgr.AddWithKey("signer", "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)

	w, err := mgr.Get("signer")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address) // known address for test key
	assert.Equal(t, "dustvault.signer", w.KeyRef)
}

func TestInvalidPrivateKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	err := mgr.AddWithKey("bad", "not-a-valid-key")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestListWalletsSorted(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("zeta", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly})  //nolint:errcheck
	mgr.Add("alpha", &wallet.Wallet{Address: addrB, Type: wallet.TypeWatchOnly}) //nolint:errcheck

	list := mgr.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))
	require.NoError(t, mgr.AddWithKey("gone", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"))

	require.NoError(t, mgr.Remove("gone"))

	_, err := mgr.Get("gone")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = ks.Retrieve("dustvault.gone")
	assert.Error(t, err)
}

func TestRemoveNonExistentWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.ErrorIs(t, mgr.Remove("ghost"), wallet.ErrWalletNotFound)
}

func TestSetDefault(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("w1", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly}) //nolint:errcheck
	mgr.Add("w2", &wallet.Wallet{Address: addrB, Type: wallet.TypeWatchOnly}) //nolint:errcheck

	require.NoError(t, mgr.SetDefault("w2"))
	def := mgr.Default()
	require.NotNil(t, def)
	assert.Equal(t, "w2", def.Name)
}

func TestDefaultWalletWithSingleWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("only", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly}) //nolint:errcheck

	def := mgr.Default()
	require.NotNil(t, def)
	assert.Equal(t, "only", def.Name)
}

func TestResolve(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.Resolve("")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)

	mgr.Add("w1", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly}) //nolint:errcheck
	w, err := mgr.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "w1", w.Name)

	w, err = mgr.Resolve("w1")
	require.NoError(t, err)
	assert.Equal(t, addrA, strings.ToLower(w.Address))
}

func TestCreatedAtIsSet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("ts", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly}) //nolint:errcheck

	w, err := mgr.Get("ts")
	require.NoError(t, err)
	assert.NotEmpty(t, w.CreatedAt)
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

func TestGenerateWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	w, hexKey, err := mgr.Generate("fresh")
	require.NoError(t, err)

	assert.Equal(t, "fresh", w.Name)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.True(t, strings.HasPrefix(w.Address, "0x"))
	assert.Len(t, w.Address, 42)

	// Key must be "0x" + 64 hex chars.
	assert.True(t, strings.HasPrefix(hexKey, "0x"))
	assert.Len(t, hexKey, 66)
}

func TestGenerateWalletDuplicateErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, _, err := mgr.Generate("dup")
	require.NoError(t, err)

	_, _, err = mgr.Generate("dup")
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestGenerateUniqueKeys(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, key1, err := mgr.Generate("g1")
	require.NoError(t, err)
	_, key2, err := mgr.Generate("g2")
	require.NoError(t, err)
	assert.NotEqual(t, key1, key2, "two generated keys must differ")
}

// ---------------------------------------------------------------------------
// ExportKey
// ---------------------------------------------------------------------------

func TestExportKeyRoundTrip(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	const knownKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	require.NoError(t, mgr.AddWithKey("exporter", knownKey))

	got, err := mgr.ExportKey("exporter")
	require.NoError(t, err)
	assert.Equal(t, knownKey, got)
}

func TestExportKeyNotFound(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.ExportKey("ghost")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestExportKeyWatchOnlyErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("watch", &wallet.Wallet{Address: addrA, Type: wallet.TypeWatchOnly}) //nolint:errcheck

	_, err := mgr.ExportKey("watch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "watch-only")
}
