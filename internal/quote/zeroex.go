// Package quote prices and builds swaps: 0x aggregator quotes (directly or
// through the proxy) and on-chain UniswapV2 router paths.
package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"
)

// NativeToken is the placeholder address aggregators use for ETH.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// ErrNoLiquidity is returned when no venue can fill the trade.
var ErrNoLiquidity = errors.New("no liquidity for pair")

// DefaultZeroExURL is the public 0x API.
const DefaultZeroExURL = "https://base.api.0x.org"

// Request identifies a sell order.
type Request struct {
	SellToken   common.Address
	BuyToken    common.Address
	SellAmount  *big.Int
	Taker       common.Address
	SlippageBps int
}

// Source is one venue in the route breakdown.
type Source struct {
	Name       string
	Proportion float64 // 0..1
}

// Quote is an executable swap.
type Quote struct {
	Request
	BuyAmount       *big.Int
	MinBuyAmount    *big.Int // may be nil
	To              common.Address
	Data            []byte
	Value           *big.Int
	AllowanceTarget common.Address // zero when selling ETH
	Sources         []Source
	FetchedAt       time.Time
}

// Age reports how old the quote is at now.
func (q *Quote) Age(now time.Time) time.Duration { return now.Sub(q.FetchedAt) }

// Fetcher returns fresh quotes.
type Fetcher interface {
	Quote(ctx context.Context, req Request) (*Quote, error)
}

// ZeroEx calls GET /swap/v1/quote. With an empty key the base URL is
// expected to be a proxy that injects it.
type ZeroEx struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time
}

func NewZeroEx(baseURL, apiKey string, log *slog.Logger) *ZeroEx {
	if baseURL == "" {
		baseURL = DefaultZeroExURL
	}
	return &ZeroEx{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: config.ProviderTimeout},
		log:     logging.Or(log),
		now:     time.Now,
	}
}

func tokenParam(a common.Address) string {
	if a == NativeToken {
		return "ETH"
	}
	return a.Hex()
}

// Quote fetches a quote and stamps it with the fetch time.
func (z *ZeroEx) Quote(ctx context.Context, req Request) (*Quote, error) {
	if req.SellAmount == nil || req.SellAmount.Sign() <= 0 {
		return nil, fmt.Errorf("sell amount must be positive")
	}
	q := url.Values{
		"sellToken":    {tokenParam(req.SellToken)},
		"buyToken":     {tokenParam(req.BuyToken)},
		"sellAmount":   {req.SellAmount.String()},
		"takerAddress": {req.Taker.Hex()},
	}
	if req.SlippageBps > 0 {
		q.Set("slippagePercentage", strconv.FormatFloat(float64(req.SlippageBps)/10_000, 'f', -1, 64))
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, z.baseURL+"/swap/v1/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if z.apiKey != "" {
		hreq.Header.Set("0x-api-key", z.apiKey)
	}
	hreq.Header.Set("Accept", "application/json")

	resp, err := z.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading quote: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("quote: HTTP %d, non-JSON body", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, quoteError(resp.StatusCode, body)
	}

	out, err := parseQuote(body)
	if err != nil {
		return nil, err
	}
	out.Request = req
	out.FetchedAt = z.now()
	z.log.Debug("quote fetched", "sell", req.SellToken.Hex(), "buy", req.BuyToken.Hex(),
		"sell_amount", req.SellAmount, "buy_amount", out.BuyAmount, "sources", len(out.Sources))
	return out, nil
}

func quoteError(status int, body []byte) error {
	res := gjson.ParseBytes(body)
	reason := res.Get("reason").String()
	if reason == "" {
		reason = res.Get("message").String()
	}
	if reason == "" {
		reason = res.Get("error").String()
	}
	for _, ve := range res.Get("validationErrors").Array() {
		if strings.Contains(strings.ToUpper(ve.Get("reason").String()), "INSUFFICIENT_ASSET_LIQUIDITY") {
			return fmt.Errorf("%w: %s", ErrNoLiquidity, reason)
		}
	}
	return fmt.Errorf("quote: HTTP %d: %s", status, reason)
}

// parseQuote accepts the v1 body (top-level to/data/value, sources) and the
// v2 body (transaction.*, route.fills, issues.allowance.spender).
func parseQuote(body []byte) (*Quote, error) {
	res := gjson.ParseBytes(body)
	if liq := res.Get("liquidityAvailable"); liq.Exists() && !liq.Bool() {
		return nil, ErrNoLiquidity
	}

	tx := res
	if res.Get("transaction").Exists() {
		tx = res.Get("transaction")
	}
	q := &Quote{
		To:    common.HexToAddress(tx.Get("to").String()),
		Value: bigField(tx.Get("value")),
	}
	var ok bool
	if q.BuyAmount, ok = new(big.Int).SetString(res.Get("buyAmount").String(), 10); !ok {
		return nil, fmt.Errorf("quote: missing buyAmount")
	}
	if m := res.Get("minBuyAmount"); m.Exists() {
		q.MinBuyAmount = bigField(m)
	}
	data, err := hexutil.Decode(tx.Get("data").String())
	if err != nil {
		return nil, fmt.Errorf("quote: bad call data: %w", err)
	}
	q.Data = data
	if q.To == (common.Address{}) {
		return nil, fmt.Errorf("quote: missing call target")
	}

	spender := res.Get("allowanceTarget").String()
	if spender == "" {
		spender = res.Get("issues.allowance.spender").String()
	}
	if common.IsHexAddress(spender) {
		q.AllowanceTarget = common.HexToAddress(spender)
	}

	res.Get("sources").ForEach(func(_, s gjson.Result) bool {
		if p := s.Get("proportion").Float(); p > 0 {
			q.Sources = append(q.Sources, Source{Name: s.Get("name").String(), Proportion: p})
		}
		return true
	})
	res.Get("route.fills").ForEach(func(_, f gjson.Result) bool {
		q.Sources = append(q.Sources, Source{
			Name:       f.Get("source").String(),
			Proportion: f.Get("proportionBps").Float() / 10_000,
		})
		return true
	})
	return q, nil
}

// bigField reads a decimal or 0x-hex numeric string.
func bigField(r gjson.Result) *big.Int {
	s := r.String()
	if s == "" {
		return new(big.Int)
	}
	if strings.HasPrefix(s, "0x") {
		if v, err := hexutil.DecodeBig(s); err == nil {
			return v
		}
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
