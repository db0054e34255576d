package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

// explorerResp is the Etherscan-compatible response envelope.
type explorerResp struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// decode returns found=false for the "no results" answer, which explorers
// report with status 0.
func (r *explorerResp) decode(out interface{}) (found bool, err error) {
	if r.Status != "1" {
		if strings.HasPrefix(strings.ToLower(r.Message), "no ") {
			return false, nil
		}
		var msg string
		if json.Unmarshal(r.Result, &msg) == nil && msg != "" && msg != r.Message {
			return false, fmt.Errorf("%s: %s", r.Message, msg)
		}
		return false, fmt.Errorf("%s", r.Message)
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return false, fmt.Errorf("decode failed: %w", err)
	}
	return true, nil
}

// BlockScout lists tokens through the BlockScout `tokenlist` action.
type BlockScout struct {
	APIURL string
}

func NewBlockScout(apiURL string) *BlockScout {
	return &BlockScout{APIURL: apiURL}
}

func (b *BlockScout) Name() string { return "blockscout" }

type blockscoutToken struct {
	Balance         string         `json:"balance"`
	ContractAddress common.Address `json:"contractAddress"`
	Decimals        string         `json:"decimals"`
	Name            string         `json:"name"`
	Symbol          string         `json:"symbol"`
	Type            string         `json:"type"`
}

func (b *BlockScout) GetHoldings(ctx context.Context, owner common.Address) ([]Holding, error) {
	q := url.Values{"module": {"account"}, "action": {"tokenlist"}, "address": {owner.Hex()}}
	var env explorerResp
	if err := getJSON(ctx, b.APIURL+"?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	var tokens []blockscoutToken
	if found, err := env.decode(&tokens); err != nil || !found {
		return nil, err
	}

	out := make([]Holding, 0, len(tokens))
	for _, t := range tokens {
		if t.Type != "" && t.Type != "ERC-20" {
			continue
		}
		bal, ok := decimalBigInt(t.Balance)
		if !ok {
			continue
		}
		dec, err := strconv.Atoi(t.Decimals)
		if err != nil {
			continue
		}
		out = append(out, Holding{
			Token:   contract.TokenInfo{Address: t.ContractAddress, Symbol: t.Symbol, Name: t.Name, Decimals: dec},
			Balance: bal,
		})
	}
	return out, nil
}

const etherscanBaseURL = "https://api.etherscan.io/v2/api"

// Etherscan discovers tokens from the owner's ERC-20 transfer history
// (Etherscan V2) and reads current balances over RPC.
type Etherscan struct {
	chainID int64
	apiKey  string
	client  *chain.EVMClient
	baseURL string // defaults to etherscanBaseURL; overridable in tests
	limit   int
}

// NewEtherscan returns nil if apiKey is empty.
func NewEtherscan(chainID int64, apiKey string, client *chain.EVMClient) *Etherscan {
	if apiKey == "" {
		return nil
	}
	return &Etherscan{chainID: chainID, apiKey: apiKey, client: client, baseURL: etherscanBaseURL, limit: 500}
}

func (e *Etherscan) Name() string { return "etherscan" }

type tokenTransfer struct {
	ContractAddress common.Address `json:"contractAddress"`
	TokenName       string         `json:"tokenName"`
	TokenSymbol     string         `json:"tokenSymbol"`
	TokenDecimal    string         `json:"tokenDecimal"`
}

func (e *Etherscan) GetHoldings(ctx context.Context, owner common.Address) ([]Holding, error) {
	q := url.Values{
		"chainid": {strconv.FormatInt(e.chainID, 10)},
		"module":  {"account"},
		"action":  {"tokentx"},
		"address": {owner.Hex()},
		"page":    {"1"},
		"offset":  {strconv.Itoa(e.limit)},
		"sort":    {"desc"},
		"apikey":  {e.apiKey},
	}
	var env explorerResp
	if err := getJSON(ctx, e.baseURL+"?"+q.Encode(), nil, &env); err != nil {
		return nil, err
	}
	var transfers []tokenTransfer
	if found, err := env.decode(&transfers); err != nil || !found {
		return nil, err
	}

	seen := make(map[common.Address]bool)
	var out []Holding
	for _, t := range transfers {
		if seen[t.ContractAddress] {
			continue
		}
		seen[t.ContractAddress] = true
		dec, err := strconv.Atoi(t.TokenDecimal)
		if err != nil {
			continue
		}
		bal, err := contract.BalanceOf(ctx, e.client, t.ContractAddress, owner)
		if err != nil {
			return nil, fmt.Errorf("balanceOf %s: %w", t.ContractAddress.Hex(), err)
		}
		out = append(out, Holding{
			Token:   contract.TokenInfo{Address: t.ContractAddress, Symbol: t.TokenSymbol, Name: t.TokenName, Decimals: dec},
			Balance: new(big.Int).Set(bal),
		})
	}
	return out, nil
}
