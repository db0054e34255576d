// Package price values holdings in the configured fiat currency.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnsupportedNetwork is returned for networks GeckoTerminal does not index.
var ErrUnsupportedNetwork = errors.New("network not priced")

// maxTokensPerRequest is GeckoTerminal's tokens_multi limit.
const maxTokensPerRequest = 30

const (
	coinGeckoURL     = "https://api.coingecko.com/api/v3"
	geckoTerminalURL = "https://api.geckoterminal.com/api/v2"
)

// Fetcher retrieves native-coin prices from CoinGecko and token prices by
// contract address from GeckoTerminal. Neither needs an API key.
type Fetcher struct {
	client        *http.Client
	currency      string
	coinGecko     string
	geckoTerminal string
}

// NewFetcher creates a new price fetcher.
func NewFetcher(currency string) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	return &Fetcher{
		client:        &http.Client{Timeout: 10 * time.Second},
		currency:      strings.ToLower(currency),
		coinGecko:     coinGeckoURL,
		geckoTerminal: geckoTerminalURL,
	}
}

// coinGeckoIDs maps chain names to the CoinGecko id of the native coin.
var coinGeckoIDs = map[string]string{
	"ethereum": "ethereum",
	"base":     "ethereum",
	"optimism": "ethereum",
	"arbitrum": "ethereum",
}

// geckoNetworks maps chain names to GeckoTerminal network ids. Testnets are
// not indexed.
var geckoNetworks = map[string]string{
	"ethereum": "eth",
	"base":     "base",
	"optimism": "optimism",
	"arbitrum": "arbitrum",
}

// NativePrice returns the price of a chain's native coin.
func (f *Fetcher) NativePrice(ctx context.Context, chainName string) (float64, error) {
	id, ok := coinGeckoIDs[strings.ToLower(chainName)]
	if !ok {
		return 0, fmt.Errorf("unknown chain: %s", chainName)
	}
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", f.coinGecko, id, f.currency)

	// Response: {"ethereum":{"usd":1234.56}}
	var raw map[string]map[string]float64
	if err := f.get(ctx, url, &raw); err != nil {
		return 0, err
	}
	p, ok := raw[id][f.currency]
	if !ok {
		return 0, fmt.Errorf("price not available for: %s", id)
	}
	return p, nil
}

type tokensMultiResp struct {
	Data []struct {
		Attributes struct {
			Address  string  `json:"address"`
			PriceUSD *string `json:"price_usd"`
		} `json:"attributes"`
	} `json:"data"`
}

// TokenPrices returns USD prices keyed by token address. Tokens without a
// price are absent from the map. Requests are chunked at 30 addresses.
func (f *Fetcher) TokenPrices(ctx context.Context, chainName string, tokens []common.Address) (map[common.Address]float64, error) {
	network, ok := geckoNetworks[strings.ToLower(chainName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, chainName)
	}
	prices := make(map[common.Address]float64, len(tokens))
	for start := 0; start < len(tokens); start += maxTokensPerRequest {
		end := min(start+maxTokensPerRequest, len(tokens))
		addrs := make([]string, 0, end-start)
		for _, t := range tokens[start:end] {
			addrs = append(addrs, strings.ToLower(t.Hex()))
		}
		url := fmt.Sprintf("%s/networks/%s/tokens/multi/%s", f.geckoTerminal, network, strings.Join(addrs, ","))

		var resp tokensMultiResp
		if err := f.get(ctx, url, &resp); err != nil {
			return prices, err
		}
		for _, d := range resp.Data {
			if d.Attributes.PriceUSD == nil || !common.IsHexAddress(d.Attributes.Address) {
				continue
			}
			p, err := strconv.ParseFloat(*d.Attributes.PriceUSD, 64)
			if err != nil {
				continue
			}
			prices[common.HexToAddress(d.Attributes.Address)] = p
		}
	}
	return prices, nil
}

func (f *Fetcher) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching prices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("price API returned HTTP %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing price response: %w", err)
	}
	return nil
}
