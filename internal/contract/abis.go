// Package contract holds the ABIs dustvault talks to and thin helpers for
// packing calls and reading view functions.
package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Builtin names.
const (
	ERC20            = "erc20"
	SimpleAccount    = "simple_account"
	CoinbaseAccount  = "coinbase_account"
	CoinbaseFactory  = "coinbase_factory"
	SimpleFactory    = "simple_factory"
	SafeProxyFactory = "safe_proxy_factory"
	Safe             = "safe"
	Safe4337Module   = "safe_4337_module"
	SafeModuleSetup  = "safe_module_setup"
	MultiSend        = "multi_send"
	Swapper          = "swapper"
	UniswapV2Router  = "uniswap_v2_router"
	EntryPoint       = "entry_point"
)

var builtinJSON = map[string]string{
	ERC20: `[
		{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
		{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
	]`,
	SimpleAccount: `[
		{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],"outputs":[]},
		{"type":"function","name":"executeBatch","stateMutability":"nonpayable","inputs":[{"name":"dest","type":"address[]"},{"name":"func","type":"bytes[]"}],"outputs":[]}
	]`,
	CoinbaseAccount: `[
		{"type":"function","name":"execute","stateMutability":"payable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
		{"type":"function","name":"executeBatch","stateMutability":"payable","inputs":[{"name":"calls","type":"tuple[]","components":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}]}],"outputs":[]}
	]`,
	CoinbaseFactory: `[
		{"type":"function","name":"getAddress","stateMutability":"view","inputs":[{"name":"owners","type":"bytes[]"},{"name":"nonce","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"createAccount","stateMutability":"payable","inputs":[{"name":"owners","type":"bytes[]"},{"name":"nonce","type":"uint256"}],"outputs":[{"name":"account","type":"address"}]}
	]`,
	SimpleFactory: `[
		{"type":"function","name":"getAddress","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"createAccount","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],"outputs":[{"name":"ret","type":"address"}]}
	]`,
	SafeProxyFactory: `[
		{"type":"function","name":"proxyCreationCode","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"bytes"}]},
		{"type":"function","name":"createProxyWithNonce","stateMutability":"nonpayable","inputs":[{"name":"_singleton","type":"address"},{"name":"initializer","type":"bytes"},{"name":"saltNonce","type":"uint256"}],"outputs":[{"name":"proxy","type":"address"}]}
	]`,
	Safe: `[
		{"type":"function","name":"setup","stateMutability":"nonpayable","inputs":[{"name":"_owners","type":"address[]"},{"name":"_threshold","type":"uint256"},{"name":"to","type":"address"},{"name":"data","type":"bytes"},{"name":"fallbackHandler","type":"address"},{"name":"paymentToken","type":"address"},{"name":"payment","type":"uint256"},{"name":"paymentReceiver","type":"address"}],"outputs":[]},
		{"type":"function","name":"execTransaction","stateMutability":"payable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"},{"name":"safeTxGas","type":"uint256"},{"name":"baseGas","type":"uint256"},{"name":"gasPrice","type":"uint256"},{"name":"gasToken","type":"address"},{"name":"refundReceiver","type":"address"},{"name":"signatures","type":"bytes"}],"outputs":[{"name":"success","type":"bool"}]}
	]`,
	Safe4337Module: `[
		{"type":"function","name":"executeUserOp","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"}],"outputs":[]}
	]`,
	SafeModuleSetup: `[
		{"type":"function","name":"enableModules","stateMutability":"nonpayable","inputs":[{"name":"modules","type":"address[]"}],"outputs":[]}
	]`,
	MultiSend: `[
		{"type":"function","name":"multiSend","stateMutability":"payable","inputs":[{"name":"transactions","type":"bytes"}],"outputs":[]}
	]`,
	Swapper: `[
		{"type":"function","name":"swapTokenForETH","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
	]`,
	UniswapV2Router: `[
		{"type":"function","name":"getAmountsOut","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
		{"type":"function","name":"swapExactTokensForETH","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
		{"type":"function","name":"swapExactTokensForTokens","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
	]`,
	EntryPoint: `[
		{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
	]`,
}

var builtins = map[string]abi.ABI{}

func init() {
	for name, js := range builtinJSON {
		parsed, err := abi.JSON(strings.NewReader(js))
		if err != nil {
			panic(fmt.Sprintf("contract: builtin ABI %s: %v", name, err))
		}
		builtins[name] = parsed
	}
}

// Builtin returns a parsed builtin ABI. It panics on unknown names, which
// are programming errors.
func Builtin(name string) abi.ABI {
	a, ok := builtins[name]
	if !ok {
		panic("contract: unknown builtin ABI " + name)
	}
	return a
}

// BuiltinNames returns all builtin names sorted.
func BuiltinNames() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Pack encodes a call to method on the named builtin.
func Pack(name, method string, args ...interface{}) ([]byte, error) {
	a := Builtin(name)
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s.%s: %w", name, method, err)
	}
	return data, nil
}

// MustPack is Pack for arguments built by this module; a failure is a bug.
func MustPack(name, method string, args ...interface{}) []byte {
	data, err := Pack(name, method, args...)
	if err != nil {
		panic(err)
	}
	return data
}
