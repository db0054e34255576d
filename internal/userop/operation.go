// Package userop models ERC-4337 v0.6 user operations and talks to the
// bundler and paymaster JSON-RPC endpoints.
package userop

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Operation is a v0.6 UserOperation.
type Operation struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

// New returns an operation with zeroed gas fields.
func New(sender common.Address, nonce *big.Int, initCode, callData []byte) *Operation {
	return &Operation{
		Sender:               sender,
		Nonce:                nonce,
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         new(big.Int),
		VerificationGasLimit: new(big.Int),
		PreVerificationGas:   new(big.Int),
		MaxFeePerGas:         new(big.Int),
		MaxPriorityFeePerGas: new(big.Int),
	}
}

var (
	bytes32Ty, _ = abi.NewType("bytes32", "", nil)
	uint256Ty, _ = abi.NewType("uint256", "", nil)
	addressTy, _ = abi.NewType("address", "", nil)

	packArgs = abi.Arguments{
		{Type: addressTy}, {Type: uint256Ty}, {Type: bytes32Ty}, {Type: bytes32Ty},
		{Type: uint256Ty}, {Type: uint256Ty}, {Type: uint256Ty}, {Type: uint256Ty},
		{Type: uint256Ty}, {Type: bytes32Ty},
	}
	hashArgs = abi.Arguments{{Type: bytes32Ty}, {Type: addressTy}, {Type: uint256Ty}}
)

// Hash returns the userOpHash the EntryPoint assigns to op on chainID.
// The signature field is not part of the hash.
func (op *Operation) Hash(entryPoint common.Address, chainID int64) common.Hash {
	packed, err := packArgs.Pack(
		op.Sender,
		orZero(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		orZero(op.CallGasLimit),
		orZero(op.VerificationGasLimit),
		orZero(op.PreVerificationGas),
		orZero(op.MaxFeePerGas),
		orZero(op.MaxPriorityFeePerGas),
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
	if err != nil {
		panic(err) // static argument types
	}
	enc, err := hashArgs.Pack(crypto.Keccak256Hash(packed), entryPoint, big.NewInt(chainID))
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

type jsonOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// MarshalJSON encodes op in the bundler's hex wire format.
func (op *Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonOperation{
		Sender:               op.Sender,
		Nonce:                (*hexutil.Big)(orZero(op.Nonce)),
		InitCode:             nonNil(op.InitCode),
		CallData:             nonNil(op.CallData),
		CallGasLimit:         (*hexutil.Big)(orZero(op.CallGasLimit)),
		VerificationGasLimit: (*hexutil.Big)(orZero(op.VerificationGasLimit)),
		PreVerificationGas:   (*hexutil.Big)(orZero(op.PreVerificationGas)),
		MaxFeePerGas:         (*hexutil.Big)(orZero(op.MaxFeePerGas)),
		MaxPriorityFeePerGas: (*hexutil.Big)(orZero(op.MaxPriorityFeePerGas)),
		PaymasterAndData:     nonNil(op.PaymasterAndData),
		Signature:            nonNil(op.Signature),
	})
}

// UnmarshalJSON decodes the bundler's hex wire format.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var j jsonOperation
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*op = Operation{
		Sender:               j.Sender,
		Nonce:                j.Nonce.ToInt(),
		InitCode:             j.InitCode,
		CallData:             j.CallData,
		CallGasLimit:         j.CallGasLimit.ToInt(),
		VerificationGasLimit: j.VerificationGasLimit.ToInt(),
		PreVerificationGas:   j.PreVerificationGas.ToInt(),
		MaxFeePerGas:         j.MaxFeePerGas.ToInt(),
		MaxPriorityFeePerGas: j.MaxPriorityFeePerGas.ToInt(),
		PaymasterAndData:     j.PaymasterAndData,
		Signature:            j.Signature,
	}
	return nil
}

// hexutil.Bytes encodes nil as "0x" already, but bundlers reject null.
func nonNil(b []byte) hexutil.Bytes {
	if b == nil {
		return hexutil.Bytes{}
	}
	return b
}
