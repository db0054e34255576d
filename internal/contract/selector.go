package contract

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Selector returns the 4-byte function selector for a canonical signature
// such as "approve(address,uint256)".
func Selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.ReplaceAll(signature, " ", "")))
	var sel [4]byte
	copy(sel[:], h.Sum(nil)[:4])
	return sel
}

var (
	SelectorApprove      = Selector("approve(address,uint256)")
	SelectorTransfer     = Selector("transfer(address,uint256)")
	SelectorTransferFrom = Selector("transferFrom(address,address,uint256)")
)

// MethodName labels calldata with the builtin method it invokes, or the
// hex selector when unknown. Calldata shorter than a selector is a plain value send.
func MethodName(data []byte) string {
	if len(data) < 4 {
		return "send"
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	for _, name := range BuiltinNames() {
		a := builtins[name]
		if m, err := a.MethodById(sel[:]); err == nil {
			return m.Name
		}
	}
	return "0x" + hex.EncodeToString(sel[:])
}
