package providers

import (
	"context"
	"strconv"

	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

const ankrEndpoint = "https://rpc.ankr.com/multichain"

// ankrChain maps chain ids to Ankr's blockchain identifiers.
var ankrChain = map[int64]string{
	1:        "eth",
	11155111: "eth_sepolia",
	8453:     "base",
	84532:    "base_sepolia",
	10:       "optimism",
	11155420: "optimism_sepolia",
	42161:    "arbitrum",
	421614:   "arbitrum_sepolia",
}

// Ankr uses Ankr's Advanced API. The free public endpoint works without a
// key; a key raises the rate limit.
type Ankr struct {
	blockchain string
	url        string
}

// NewAnkr returns nil if the chain is not supported by Ankr.
func NewAnkr(chainID int64, apiKey string) *Ankr {
	bc, ok := ankrChain[chainID]
	if !ok {
		return nil
	}
	url := ankrEndpoint
	if apiKey != "" {
		url += "/" + apiKey
	}
	return &Ankr{blockchain: bc, url: url}
}

func (a *Ankr) Name() string { return "ankr" }

type ankrBalance struct {
	Assets []struct {
		TokenName         string         `json:"tokenName"`
		TokenSymbol       string         `json:"tokenSymbol"`
		TokenDecimals     int            `json:"tokenDecimals"`
		TokenType         string         `json:"tokenType"` // NATIVE | ERC20
		ContractAddress   common.Address `json:"contractAddress"`
		BalanceRawInteger string         `json:"balanceRawInteger"`
		BalanceUsd        string         `json:"balanceUsd"`
		Thumbnail         string         `json:"thumbnail"`
	} `json:"assets"`
}

func (a *Ankr) GetHoldings(ctx context.Context, owner common.Address) ([]Holding, error) {
	params := map[string]interface{}{
		"blockchain":      []string{a.blockchain},
		"walletAddress":   owner.Hex(),
		"onlyWhitelisted": false,
	}
	var res ankrBalance
	if err := postRPC(ctx, a.url, "ankr_getAccountBalance", params, &res); err != nil {
		return nil, err
	}

	var out []Holding
	for _, as := range res.Assets {
		if as.TokenType != "ERC20" {
			continue
		}
		bal, ok := decimalBigInt(as.BalanceRawInteger)
		if !ok {
			continue
		}
		h := Holding{
			Token: contract.TokenInfo{
				Address:  as.ContractAddress,
				Symbol:   as.TokenSymbol,
				Name:     as.TokenName,
				Decimals: as.TokenDecimals,
			},
			Balance: bal,
			Logo:    as.Thumbnail,
		}
		if usd, err := strconv.ParseFloat(as.BalanceUsd, 64); err == nil && usd > 0 {
			h.USD, h.Priced = usd, true
		}
		out = append(out, h)
	}
	return out, nil
}
