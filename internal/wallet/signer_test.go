package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/99designs/keyring"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// testKeystore returns a file-backed Keystore isolated to a temp directory.
// Using the FileBackend avoids OS keychain prompts in CI.
func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "dustvault-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: func(string) (string, error) { return "testpass", nil },
	})
	require.NoError(t, err)
	return &Keystore{ring: ring}
}

func testSigner(t *testing.T, chainID int64) *KeystoreSigner {
	t.Helper()
	ks := NewInMemoryKeystore()
	ref, err := ks.Store("w", testPrivKeyHex)
	require.NoError(t, err)
	s, err := NewKeystoreSigner(&Wallet{Name: "w", Type: TypeSigning, KeyRef: ref}, ks, chainID)
	require.NoError(t, err)
	return s
}

func mailTypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Mail": {
				{Name: "to", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "tags", Type: "string[]"},
			},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:              "Dust",
			VerifyingContract: "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC",
		},
		Message: apitypes.TypedDataMessage{
			"to":     "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB",
			"amount": "1000",
			"tags":   []interface{}{"a", "b"},
		},
	}
}

// ---------------------------------------------------------------------------
// Keystore
// ---------------------------------------------------------------------------

func TestKeystoreFileBackendRoundTrip(t *testing.T) {
	ks := testKeystore(t)
	ref, err := ks.Store("alice", "0x"+testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "dustvault.alice", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, got, "stored keys are normalised")

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.Error(t, err)
	assert.NoError(t, ks.Delete(ref), "deleting a missing key is not an error")
}

func TestRemoveWalletWithMissingKeyFile(t *testing.T) {
	ks := testKeystore(t)
	mgr := NewManager(WithInMemoryStore(), WithKeystore(ks))
	require.NoError(t, mgr.AddWithKey("alice", testPrivKeyHex))

	require.NoError(t, ks.Delete("dustvault.alice"))
	require.NoError(t, mgr.Remove("alice"))
	_, err := mgr.Get("alice")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestKeystoreNilRing(t *testing.T) {
	ks := &Keystore{}
	_, err := ks.Retrieve("dustvault.x")
	assert.Error(t, err)
	_, err = ks.Store("x", testPrivKeyHex)
	assert.Error(t, err)
}

func TestNormaliseHexKey(t *testing.T) {
	assert.Equal(t, "abcd", normaliseHexKey("0xabcd"))
	assert.Equal(t, "abcd", normaliseHexKey("0Xabcd"))
	assert.Equal(t, "abcd", normaliseHexKey("  abcd\n"))
	assert.Equal(t, "", normaliseHexKey("0x"))
}

// ---------------------------------------------------------------------------
// KeystoreSigner
// ---------------------------------------------------------------------------

func TestKeystoreSignerAddress(t *testing.T) {
	assert.Equal(t, testSignerAddr, testSigner(t, 8453).Address().Hex())
}

func TestKeystoreSignerWatchOnly(t *testing.T) {
	_, err := NewKeystoreSigner(&Wallet{Name: "w", Type: TypeWatchOnly}, NewInMemoryKeystore(), 1)
	assert.ErrorIs(t, err, ErrWatchOnly)
}

func TestSignMessageRecoversToOwner(t *testing.T) {
	s := testSigner(t, 8453)
	msg := []byte("dustvault")

	sig, err := s.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	addr, err := VerifyMessage(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, addr.Hex())
}

func TestVerifyMessageBadLength(t *testing.T) {
	_, err := VerifyMessage([]byte("x"), []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSignTransactionAlwaysRefuses(t *testing.T) {
	s := testSigner(t, 8453)
	tx := types.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1e9), nil)

	sig, err := s.SignTransaction(context.Background(), tx)
	assert.ErrorIs(t, err, ErrRawSigningUnsupported)
	assert.Nil(t, sig)
}

func TestSignTypedDataFillsChainIDWithoutMutating(t *testing.T) {
	s := testSigner(t, 8453)
	td := mailTypedData()

	sig, err := s.SignTypedData(context.Background(), td)
	require.NoError(t, err)

	assert.Nil(t, td.Domain.ChainId, "caller's domain must not be modified")
	assert.Len(t, td.Types["EIP712Domain"], 2, "caller's types must not be modified")

	prepared, err := PrepareTypedData(td, 8453)
	require.NoError(t, err)
	addr, err := VerifyTypedData(prepared, sig)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, addr.Hex())
}

func TestSignTypedDataKeepsExplicitChainID(t *testing.T) {
	s := testSigner(t, 8453)
	td := mailTypedData()
	td.Domain.ChainId = math.NewHexOrDecimal256(1)
	td.Types["EIP712Domain"] = append(td.Types["EIP712Domain"], apitypes.Type{Name: "chainId", Type: "uint256"})

	sig, err := s.SignTypedData(context.Background(), td)
	require.NoError(t, err)

	addr, err := VerifyTypedData(td, sig)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, addr.Hex())
}

func TestSignTypedDataEmptyTypes(t *testing.T) {
	_, err := testSigner(t, 8453).SignTypedData(context.Background(), apitypes.TypedData{})
	assert.ErrorIs(t, err, ErrInvalidTypedData)
}

// ---------------------------------------------------------------------------
// PrepareTypedData
// ---------------------------------------------------------------------------

func TestPrepareTypedDataDeepCopiesMessage(t *testing.T) {
	td := mailTypedData()
	td.Message["nested"] = map[string]interface{}{"v": big.NewInt(7)}

	out, err := PrepareTypedData(td, 10)
	require.NoError(t, err)

	out.Message["tags"].([]interface{})[0] = "changed"
	out.Message["nested"].(map[string]interface{})["v"].(*big.Int).SetInt64(8)

	assert.Equal(t, "a", td.Message["tags"].([]interface{})[0])
	assert.Equal(t, int64(7), td.Message["nested"].(map[string]interface{})["v"].(*big.Int).Int64())
	assert.Equal(t, int64(10), (*big.Int)(out.Domain.ChainId).Int64())
}

func TestPrepareTypedDataBuildsDomainType(t *testing.T) {
	td := mailTypedData()
	delete(td.Types, "EIP712Domain")

	out, err := PrepareTypedData(td, 8453)
	require.NoError(t, err)
	names := []string{}
	for _, f := range out.Types["EIP712Domain"] {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"name", "chainId", "verifyingContract"}, names)
	_, ok := td.Types["EIP712Domain"]
	assert.False(t, ok)
}

func TestSignHashHasNoPrefix(t *testing.T) {
	s := testSigner(t, 8453)
	hash := common.HexToHash("0x" + "42" + "00000000000000000000000000000000000000000000000000000000000000")

	sig, err := s.SignHash(context.Background(), hash)
	require.NoError(t, err)
	addr, err := recoverAddress(hash.Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, addr.Hex())

	var _ HashSigner = s
	var _ HashSigner = (*RemoteSigner)(nil)
}
