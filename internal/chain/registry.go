package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Chain holds all metadata for a single EVM chain and its testnet.
type Chain struct {
	Name               string `json:"name"`
	DisplayName        string `json:"display_name"`
	ChainID            int64  `json:"chain_id"`
	TestnetChainID     int64  `json:"testnet_chain_id"`
	NativeCurrency     string `json:"native_currency"`
	MainnetRPCs        []string
	TestnetRPCs        []string
	MainnetExplorer    string
	TestnetExplorer    string
	TestnetName        string
	MainnetExplorerAPI string // BlockScout-compatible API
	TestnetExplorerAPI string

	mainnet Assets
	testnet Assets
}

// Assets are the well-known token contracts of one network.
type Assets struct {
	WrappedNative common.Address
	Stablecoin    common.Address // USDC
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry creates the registry of supported chains.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, 2*len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
		r.byID[c.TestnetChainID] = c
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "base", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by mainnet or testnet chain id and reports
// which mode the id belongs to.
func (r *Registry) GetByChainID(id int64) (*Chain, string, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, "", ErrChainNotFound
	}
	if id == c.TestnetChainID {
		return c, "testnet", nil
	}
	return c, "mainnet", nil
}

// ID returns the chain id for the given mode ("mainnet"/"testnet").
func (c *Chain) ID(mode string) int64 {
	if mode == "testnet" {
		return c.TestnetChainID
	}
	return c.ChainID
}

// Label returns the display name for the given mode.
func (c *Chain) Label(mode string) string {
	if mode == "testnet" {
		return c.TestnetName
	}
	return c.DisplayName
}

// RPCs returns the RPC list for a chain in the given mode.
func (c *Chain) RPCs(mode string) []string {
	if mode == "testnet" {
		return c.TestnetRPCs
	}
	return c.MainnetRPCs
}

// Explorer returns the explorer URL for a chain in the given mode.
func (c *Chain) Explorer(mode string) string {
	if mode == "testnet" {
		return c.TestnetExplorer
	}
	return c.MainnetExplorer
}

// ExplorerAPIURL returns the BlockScout-compatible API endpoint for the
// given mode, or an empty string if none is registered.
func (c *Chain) ExplorerAPIURL(mode string) string {
	if mode == "testnet" {
		return c.TestnetExplorerAPI
	}
	return c.MainnetExplorerAPI
}

// TxURL links a transaction hash on the explorer.
func (c *Chain) TxURL(mode, hash string) string {
	return c.Explorer(mode) + "/tx/" + hash
}

// Assets returns the well-known tokens for the given mode.
func (c *Chain) Assets(mode string) Assets {
	if mode == "testnet" {
		return c.testnet
	}
	return c.mainnet
}

// --- chain data ---

var weth = common.HexToAddress("0x4200000000000000000000000000000000000006") // OP-stack predeploy

func allChains() []Chain {
	return []Chain{
		{
			Name: "base", DisplayName: "Base", ChainID: 8453, TestnetChainID: 84532,
			NativeCurrency:     "ETH",
			MainnetRPCs:        []string{"https://mainnet.base.org", "https://base.llamarpc.com", "https://base-rpc.publicnode.com"},
			TestnetRPCs:        []string{"https://sepolia.base.org", "https://base-sepolia-rpc.publicnode.com"},
			MainnetExplorer:    "https://basescan.org",
			TestnetExplorer:    "https://sepolia.basescan.org",
			TestnetName:        "Base Sepolia",
			MainnetExplorerAPI: "https://base.blockscout.com/api",
			TestnetExplorerAPI: "https://base-sepolia.blockscout.com/api",
			mainnet:            Assets{WrappedNative: weth, Stablecoin: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")},
			testnet:            Assets{WrappedNative: weth, Stablecoin: common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")},
		},
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, TestnetChainID: 11155111,
			NativeCurrency:     "ETH",
			MainnetRPCs:        []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			TestnetRPCs:        []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://sepolia.gateway.tenderly.co"},
			MainnetExplorer:    "https://etherscan.io",
			TestnetExplorer:    "https://sepolia.etherscan.io",
			TestnetName:        "Sepolia",
			MainnetExplorerAPI: "https://eth.blockscout.com/api",
			TestnetExplorerAPI: "https://eth-sepolia.blockscout.com/api",
			mainnet: Assets{
				WrappedNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				Stablecoin:    common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
			},
			testnet: Assets{
				WrappedNative: common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
				Stablecoin:    common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
			},
		},
		{
			Name: "optimism", DisplayName: "Optimism", ChainID: 10, TestnetChainID: 11155420,
			NativeCurrency:     "ETH",
			MainnetRPCs:        []string{"https://mainnet.optimism.io", "https://optimism-rpc.publicnode.com"},
			TestnetRPCs:        []string{"https://sepolia.optimism.io"},
			MainnetExplorer:    "https://optimistic.etherscan.io",
			TestnetExplorer:    "https://sepolia-optimism.etherscan.io",
			TestnetName:        "OP Sepolia",
			MainnetExplorerAPI: "https://optimism.blockscout.com/api",
			TestnetExplorerAPI: "https://optimism-sepolia.blockscout.com/api",
			mainnet:            Assets{WrappedNative: weth, Stablecoin: common.HexToAddress("0x0b2C639c533813f4Aa9D7837cAf62653d097Ff85")},
			testnet:            Assets{WrappedNative: weth, Stablecoin: common.HexToAddress("0x5fd84259d66Cd46123540766Be93DFE6D43130D7")},
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum One", ChainID: 42161, TestnetChainID: 421614,
			NativeCurrency:     "ETH",
			MainnetRPCs:        []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum-one-rpc.publicnode.com"},
			TestnetRPCs:        []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			MainnetExplorer:    "https://arbiscan.io",
			TestnetExplorer:    "https://sepolia.arbiscan.io",
			TestnetName:        "Arbitrum Sepolia",
			MainnetExplorerAPI: "https://arbitrum.blockscout.com/api",
			TestnetExplorerAPI: "https://arbitrum-sepolia.blockscout.com/api",
			mainnet: Assets{
				WrappedNative: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
				Stablecoin:    common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
			},
			testnet: Assets{
				WrappedNative: common.HexToAddress("0x980B62Da83eFf3D4576C647993b0c1D7faf17c73"),
				Stablecoin:    common.HexToAddress("0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d"),
			},
		},
	}
}
