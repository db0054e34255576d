package wallet

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ErrInvalidTypedData is returned for typed data without type definitions.
var ErrInvalidTypedData = errors.New("invalid typed data: types must not be empty")

const domainType = "EIP712Domain"

// PrepareTypedData returns a deep copy of td ready for signing. A missing
// domain chainId is filled with chainID and the EIP712Domain type is
// completed to match. td itself is never modified.
func PrepareTypedData(td apitypes.TypedData, chainID int64) (apitypes.TypedData, error) {
	if len(td.Types) == 0 {
		return apitypes.TypedData{}, ErrInvalidTypedData
	}
	out := cloneTypedData(td)

	if out.Domain.ChainId == nil && chainID != 0 {
		out.Domain.ChainId = math.NewHexOrDecimal256(chainID)
	}

	fields, ok := out.Types[domainType]
	if !ok {
		out.Types[domainType] = domainFields(out.Domain)
		return out, nil
	}
	if out.Domain.ChainId != nil && !hasField(fields, "chainId") {
		out.Types[domainType] = append(fields, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	return out, nil
}

// TypedDataHash returns the EIP-712 digest of td.
func TypedDataHash(td apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	return hash, err
}

func domainFields(d apitypes.TypedDataDomain) []apitypes.Type {
	var fields []apitypes.Type
	if d.Name != "" {
		fields = append(fields, apitypes.Type{Name: "name", Type: "string"})
	}
	if d.Version != "" {
		fields = append(fields, apitypes.Type{Name: "version", Type: "string"})
	}
	if d.ChainId != nil {
		fields = append(fields, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if d.VerifyingContract != "" {
		fields = append(fields, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	if d.Salt != "" {
		fields = append(fields, apitypes.Type{Name: "salt", Type: "bytes32"})
	}
	return fields
}

func hasField(fields []apitypes.Type, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func cloneTypedData(td apitypes.TypedData) apitypes.TypedData {
	out := apitypes.TypedData{
		Types:       make(apitypes.Types, len(td.Types)),
		PrimaryType: td.PrimaryType,
		Domain:      td.Domain,
	}
	for name, fields := range td.Types {
		out.Types[name] = append([]apitypes.Type(nil), fields...)
	}
	if td.Domain.ChainId != nil {
		id := *td.Domain.ChainId
		out.Domain.ChainId = &id
	}
	if td.Message != nil {
		out.Message = cloneValue(td.Message).(map[string]interface{})
	}
	return out
}

// cloneValue deep-copies the value shapes that appear in typed-data messages.
// Numbers keep their Go types.
func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(x))
		for i, e := range x {
			s[i] = cloneValue(e)
		}
		return s
	case []byte:
		return append([]byte(nil), x...)
	case *big.Int:
		if x == nil {
			return x
		}
		return new(big.Int).Set(x)
	case *math.HexOrDecimal256:
		if x == nil {
			return x
		}
		c := *x
		return &c
	default:
		return v
	}
}
