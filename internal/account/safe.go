package account

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/userop"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Safe operation types.
const (
	opCall         uint8 = 0
	opDelegateCall uint8 = 1
)

// safeAccount is a 1-of-1 Safe with the 4337 module enabled at setup.
type safeAccount struct {
	client    *chain.EVMClient
	contracts Contracts

	mu           sync.Mutex
	creationCode []byte // SafeProxyFactory.proxyCreationCode(), immutable
}

func newSafeAccount(client *chain.EVMClient, c Contracts) *safeAccount {
	return &safeAccount{client: client, contracts: c}
}

func (a *safeAccount) Kind() Kind { return KindSafe }

// initializer is the Safe.setup call: one owner, threshold 1, the module
// enabled through a delegatecall to the module setup library, and the module
// as fallback handler.
func (a *safeAccount) initializer(owner common.Address) ([]byte, error) {
	enable, err := contract.Pack(contract.SafeModuleSetup, "enableModules", []common.Address{a.contracts.Safe4337Module})
	if err != nil {
		return nil, err
	}
	return contract.Pack(contract.Safe, "setup",
		[]common.Address{owner},
		big.NewInt(1),
		a.contracts.SafeModuleSetup,
		enable,
		a.contracts.Safe4337Module,
		common.Address{},
		new(big.Int),
		common.Address{},
	)
}

func (a *safeAccount) proxyCreationCode(ctx context.Context) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.creationCode != nil {
		return a.creationCode, nil
	}
	code, err := contract.NewCaller(a.client, contract.SafeProxyFactory, a.contracts.SafeProxyFactory).
		CallBytes(ctx, "proxyCreationCode")
	if err != nil {
		return nil, err
	}
	a.creationCode = code
	return code, nil
}

// Address computes the CREATE2 address the proxy factory would deploy to.
func (a *safeAccount) Address(ctx context.Context, owner common.Address, index uint64) (common.Address, error) {
	init, err := a.initializer(owner)
	if err != nil {
		return common.Address{}, err
	}
	code, err := a.proxyCreationCode(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return SafeAddress(a.contracts.SafeProxyFactory, a.contracts.SafeSingleton, code, init, index), nil
}

// SafeAddress is the CREATE2 derivation of SafeProxyFactory.createProxyWithNonce:
// salt = keccak256(keccak256(initializer) ‖ saltNonce) and the init code is
// proxyCreationCode ‖ uint256(singleton).
func SafeAddress(factory, singleton common.Address, creationCode, initializer []byte, saltNonce uint64) common.Address {
	nonce := common.LeftPadBytes(new(big.Int).SetUint64(saltNonce).Bytes(), 32)
	salt := crypto.Keccak256Hash(crypto.Keccak256(initializer), nonce)
	deployment := append(append([]byte{}, creationCode...), common.LeftPadBytes(singleton.Bytes(), 32)...)
	return crypto.CreateAddress2(factory, salt, crypto.Keccak256(deployment))
}

func (a *safeAccount) InitCode(owner common.Address, index uint64) ([]byte, error) {
	init, err := a.initializer(owner)
	if err != nil {
		return nil, err
	}
	data, err := contract.Pack(contract.SafeProxyFactory, "createProxyWithNonce",
		a.contracts.SafeSingleton, init, new(big.Int).SetUint64(index))
	if err != nil {
		return nil, err
	}
	return withFactory(a.contracts.SafeProxyFactory, data), nil
}

// target collapses calls into one Safe transaction: a single call is made
// directly, a batch is delegatecalled through MultiSendCallOnly.
func (a *safeAccount) target(calls []Call) (common.Address, *big.Int, []byte, uint8, error) {
	if len(calls) == 1 {
		c := calls[0]
		return c.To, value(c.Value), nonNilData(c.Data), opCall, nil
	}
	data, err := contract.Pack(contract.MultiSend, "multiSend", EncodeMultiSend(calls))
	if err != nil {
		return common.Address{}, nil, nil, 0, err
	}
	return a.contracts.MultiSend, new(big.Int), data, opDelegateCall, nil
}

// EncodeMultiSend packs calls as operation ‖ to ‖ value ‖ dataLength ‖ data.
func EncodeMultiSend(calls []Call) []byte {
	var out []byte
	for _, c := range calls {
		out = append(out, opCall)
		out = append(out, c.To.Bytes()...)
		out = append(out, common.LeftPadBytes(value(c.Value).Bytes(), 32)...)
		out = append(out, common.LeftPadBytes(big.NewInt(int64(len(c.Data))).Bytes(), 32)...)
		out = append(out, c.Data...)
	}
	return out
}

func (a *safeAccount) EncodeExecute(calls []Call) ([]byte, error) {
	to, val, data, op, err := a.target(calls)
	if err != nil {
		return nil, err
	}
	return contract.Pack(contract.Safe4337Module, "executeUserOp", to, val, data, op)
}

// EncodeOwnerExecute builds execTransaction with an approved-hash signature,
// which the Safe accepts when msg.sender is the owner.
func (a *safeAccount) EncodeOwnerExecute(owner common.Address, calls []Call) ([]byte, error) {
	to, val, data, op, err := a.target(calls)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[:32], common.LeftPadBytes(owner.Bytes(), 32))
	sig[64] = 1
	return contract.Pack(contract.Safe, "execTransaction",
		to, val, data, op,
		new(big.Int), new(big.Int), new(big.Int),
		common.Address{}, common.Address{},
		sig,
	)
}

var safeOpTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"SafeOp": {
		{Name: "safe", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "initCode", Type: "bytes"},
		{Name: "callData", Type: "bytes"},
		{Name: "callGasLimit", Type: "uint256"},
		{Name: "verificationGasLimit", Type: "uint256"},
		{Name: "preVerificationGas", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymasterAndData", Type: "bytes"},
		{Name: "validAfter", Type: "uint48"},
		{Name: "validUntil", Type: "uint48"},
		{Name: "entryPoint", Type: "address"},
	},
}

// SafeOpTypedData is the EIP-712 payload the 4337 module verifies.
func (a *safeAccount) SafeOpTypedData(op *userop.Operation, entryPoint common.Address, chainID int64, validAfter, validUntil uint64) apitypes.TypedData {
	num := func(v *big.Int) *math.HexOrDecimal256 { return (*math.HexOrDecimal256)(new(big.Int).Set(value(v))) }
	return apitypes.TypedData{
		Types:       safeOpTypes,
		PrimaryType: "SafeOp",
		Domain: apitypes.TypedDataDomain{
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: a.contracts.Safe4337Module.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"safe":                 op.Sender.Hex(),
			"nonce":                num(op.Nonce),
			"initCode":             hexutil.Encode(op.InitCode),
			"callData":             hexutil.Encode(op.CallData),
			"callGasLimit":         num(op.CallGasLimit),
			"verificationGasLimit": num(op.VerificationGasLimit),
			"preVerificationGas":   num(op.PreVerificationGas),
			"maxFeePerGas":         num(op.MaxFeePerGas),
			"maxPriorityFeePerGas": num(op.MaxPriorityFeePerGas),
			"paymasterAndData":     hexutil.Encode(op.PaymasterAndData),
			"validAfter":           num(new(big.Int).SetUint64(validAfter)),
			"validUntil":           num(new(big.Int).SetUint64(validUntil)),
			"entryPoint":           entryPoint.Hex(),
		},
	}
}

// SignUserOp signs the SafeOp typed data and prefixes the validity window.
func (a *safeAccount) SignUserOp(ctx context.Context, signer wallet.SignerAdapter, op *userop.Operation, entryPoint common.Address, chainID int64) ([]byte, error) {
	sig, err := signer.SignTypedData(ctx, a.SafeOpTypedData(op, entryPoint, chainID, 0, 0))
	if err != nil {
		return nil, err
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("safe: unexpected signature length %d", len(sig))
	}
	return append(validity(0, 0), sig...), nil
}

func (a *safeAccount) DummySignature() []byte {
	return append(validity(0, 0), dummyECDSA...)
}

// validity packs validAfter ‖ validUntil as two uint48 values.
func validity(after, until uint64) []byte {
	out := make([]byte, 12)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], after)
	copy(out[0:6], b[2:])
	binary.BigEndian.PutUint64(b[:], until)
	copy(out[6:12], b[2:])
	return out
}
