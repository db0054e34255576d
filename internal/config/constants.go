package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
const (
	GasLimitETHTransfer   = uint64(21_000)
	GasLimitERC20Transfer = uint64(60_000)
	GasLimitContractCall  = uint64(200_000)
	GasLimitBatchCall     = uint64(1_000_000) // owner-paid executeBatch
	GasLimitDeploy        = uint64(500_000)   // factory createAccount
)

// Timeout constants used across cmd and the submitters.
const (
	RPCSelectTimeout     = 10 * time.Second
	ProviderTimeout      = 12 * time.Second
	TxConfirmTimeout     = 3 * time.Minute
	UserOpConfirmTimeout = 3 * time.Minute
	ReceiptPollInterval  = 2 * time.Second
)

// Names accepted in Config.Contracts.
const (
	ContractEntryPoint      = "entry_point"
	ContractCoinbaseFactory = "coinbase_factory"
	ContractSimpleFactory   = "simple_factory"
	ContractSafeFactory     = "safe_proxy_factory"
	ContractSafeSingleton   = "safe_singleton"
	ContractSafeModule      = "safe_4337_module"
	ContractSafeModuleSetup = "safe_module_setup"
	ContractMultiSend       = "multi_send"
	ContractSwapper         = "swapper"
	ContractRouter          = "router"
)

// DefaultContracts are the deployments shared by every supported chain.
var DefaultContracts = map[string]string{
	ContractEntryPoint:      "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789", // v0.6
	ContractCoinbaseFactory: "0xBA5ED110eFDBa3D005bfC882d75358ACBbB85842",
	ContractSimpleFactory:   "0x9406Cc6185a346906296840746125a0E44976454",
	ContractSafeFactory:     "0x4e1DCf7AD4e460CfD30791CCC4F9c8a4f820ec67",
	ContractSafeSingleton:   "0x29fcB43b46531BcA003ddC8FCB67FFE91900C762", // SafeL2 1.4.1
	ContractSafeModule:      "0xa581c4A4DB7175302464fF3C06380BC3270b4037", // Safe4337Module 0.2.0
	ContractSafeModuleSetup: "0x8EcD4ec46D4D2a6B64fE960B3D64e8B94B2234eb", // AddModulesLib 0.2.0
	ContractMultiSend:       "0x9641d764fc13c8B624c04430C7356C1C7C8102e2", // MultiSendCallOnly 1.4.1
	ContractSwapper:         "0xdBe1e97FB92E6511351FB8d01B0521ea9135Af12",
	ContractRouter:          "0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24", // Uniswap V2 on Base
}
