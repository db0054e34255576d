package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// moralisChains lists the chain ids the Moralis EVM API indexes.
var moralisChains = map[int64]bool{
	1: true, 11155111: true,
	8453: true, 84532: true,
	10:    true,
	42161: true,
}

const moralisBaseURL = "https://deep-index.moralis.io/api/v2.2"

// Moralis is backed by the Moralis wallet token API. It is the only
// provider that reports spam classification.
type Moralis struct {
	hexChain string
	apiKey   string
	baseURL  string // defaults to moralisBaseURL; overridable in tests
}

// NewMoralis returns nil if apiKey is empty or the chain is not supported.
func NewMoralis(chainID int64, apiKey string) *Moralis {
	if apiKey == "" || !moralisChains[chainID] {
		return nil
	}
	return &Moralis{hexChain: fmt.Sprintf("0x%x", chainID), apiKey: apiKey, baseURL: moralisBaseURL}
}

func (m *Moralis) Name() string { return "moralis" }

type moralisToken struct {
	TokenAddress common.Address `json:"token_address"`
	Name         string         `json:"name"`
	Symbol       string         `json:"symbol"`
	Logo         *string        `json:"logo"`
	Decimals     json.Number    `json:"decimals"`
	Balance      string         `json:"balance"` // decimal base units
	PossibleSpam bool           `json:"possible_spam"`
}

func (m *Moralis) GetHoldings(ctx context.Context, owner common.Address) ([]Holding, error) {
	url := fmt.Sprintf("%s/%s/erc20?chain=%s", m.baseURL, owner.Hex(), m.hexChain)
	var tokens []moralisToken
	if err := getJSON(ctx, url, http.Header{"X-Api-Key": {m.apiKey}}, &tokens); err != nil {
		return nil, err
	}

	out := make([]Holding, 0, len(tokens))
	for _, t := range tokens {
		bal, ok := decimalBigInt(t.Balance)
		if !ok {
			continue
		}
		dec, err := t.Decimals.Int64()
		if err != nil {
			continue
		}
		h := Holding{
			Token:   contract.TokenInfo{Address: t.TokenAddress, Symbol: t.Symbol, Name: t.Name, Decimals: int(dec)},
			Balance: bal,
			Spam:    t.PossibleSpam,
		}
		if t.Logo != nil {
			h.Logo = *t.Logo
		}
		out = append(out, h)
	}
	return out, nil
}
