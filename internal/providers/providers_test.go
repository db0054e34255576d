package providers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/config"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	usdc  = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	degen = common.HexToAddress("0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed")
	toby  = common.HexToAddress("0xb8D98a102b0079B69FFbc760C8d857A31653e56e")
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// rpcServer answers indexer JSON-RPC calls by method.
func rpcServer(t *testing.T, results map[string]func(params json.RawMessage) interface{}) *httptest.Server {
	return testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": 1}
		if fn, ok := results[req.Method]; ok {
			resp["result"] = fn(req.Params)
		} else {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})
}

type stubProvider struct {
	name string
	hs   []Holding
	err  error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) GetHoldings(context.Context, common.Address) ([]Holding, error) {
	return s.hs, s.err
}

func holding(addr common.Address, symbol string, bal int64) Holding {
	return Holding{Token: contract.TokenInfo{Address: addr, Symbol: symbol, Decimals: 18}, Balance: big.NewInt(bal)}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistryFallsThroughFailures(t *testing.T) {
	r := New(
		&stubProvider{name: "a", err: errors.New("HTTP 429")},
		&stubProvider{name: "b", hs: []Holding{holding(toby, "TOBY", 5), holding(degen, "DEGEN", 1)}},
		&stubProvider{name: "c", err: errors.New("never reached")},
	)
	res, err := r.GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Source)
	assert.Equal(t, []string{"a: HTTP 429"}, res.Warnings)
	require.Len(t, res.Holdings, 2)
	assert.Equal(t, "DEGEN", res.Holdings[0].Token.Symbol, "sorted by symbol")
}

func TestRegistryDropsZeroBalances(t *testing.T) {
	r := New(&stubProvider{name: "a", hs: []Holding{holding(toby, "TOBY", 0), holding(degen, "DEGEN", 3)}})
	res, err := r.GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, res.Holdings, 1)
	assert.Equal(t, degen, res.Holdings[0].Token.Address)
}

func TestRegistryAcceptsEmptyAnswer(t *testing.T) {
	r := New(&stubProvider{name: "a"}, &stubProvider{name: "b", hs: []Holding{holding(toby, "TOBY", 1)}})
	res, err := r.GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Source)
	assert.Empty(t, res.Holdings)
}

func TestRegistryAllFailed(t *testing.T) {
	r := New(&stubProvider{name: "a", err: errors.New("boom")}, &stubProvider{name: "b", err: errors.New("bang")})
	res, err := r.GetHoldings(context.Background(), owner)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.Len(t, res.Warnings, 2)
}

func TestRegistryNames(t *testing.T) {
	r := New(&stubProvider{name: "x"}, &stubProvider{name: "y"})
	assert.Equal(t, []string{"x", "y"}, r.Names())
}

// ---------------------------------------------------------------------------
// Alchemy
// ---------------------------------------------------------------------------

func TestNewAlchemyNilWithoutKeyOrChain(t *testing.T) {
	assert.Nil(t, NewAlchemy(8453, "", nil))
	assert.Nil(t, NewAlchemy(56, "KEY", nil))
	assert.NotNil(t, NewAlchemy(84532, "KEY", nil))
}

func TestAlchemyHoldingsWithCachedMetadata(t *testing.T) {
	metaCalls := 0
	srv := rpcServer(t, map[string]func(json.RawMessage) interface{}{
		"alchemy_getTokenBalances": func(json.RawMessage) interface{} {
			return map[string]interface{}{
				"address": owner.Hex(),
				"tokenBalances": []map[string]interface{}{
					{"contractAddress": degen.Hex(), "tokenBalance": "0x0de0b6b3a7640000"},
					{"contractAddress": toby.Hex(), "tokenBalance": "0x0"},
					{"contractAddress": usdc.Hex(), "tokenBalance": nil, "error": "execution reverted"},
				},
			}
		},
		"alchemy_getTokenMetadata": func(json.RawMessage) interface{} {
			metaCalls++
			return map[string]interface{}{"name": "Degen", "symbol": "DEGEN", "decimals": 18, "logo": "https://logo"}
		},
	})

	a := NewAlchemy(8453, "KEY", NewMemoryCache())
	a.url = srv.URL

	for i := 0; i < 2; i++ {
		hs, err := a.GetHoldings(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, hs, 1)
		assert.Equal(t, "DEGEN", hs[0].Token.Symbol)
		assert.Equal(t, "1", hs[0].Amount())
	}
	assert.Equal(t, 1, metaCalls, "metadata is cached")
}

func TestAlchemyRPCError(t *testing.T) {
	srv := rpcServer(t, nil)
	a := NewAlchemy(8453, "KEY", nil)
	a.url = srv.URL
	_, err := a.GetHoldings(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

// ---------------------------------------------------------------------------
// Moralis
// ---------------------------------------------------------------------------

func TestMoralisHoldings(t *testing.T) {
	var gotKey, gotPath, gotChain string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotPath = r.URL.Path
		gotChain = r.URL.Query().Get("chain")
		w.Write([]byte(`[
			{"token_address":"` + degen.Hex() + `","name":"Degen","symbol":"DEGEN","logo":null,"decimals":18,"balance":"2500000000000000000","possible_spam":false},
			{"token_address":"` + toby.Hex() + `","name":"Claim rewards","symbol":"SCAM","logo":"x","decimals":"6","balance":"1","possible_spam":true}
		]`)) //nolint:errcheck
	})

	m := NewMoralis(8453, "MKEY")
	require.NotNil(t, m)
	m.baseURL = srv.URL

	hs, err := m.GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "MKEY", gotKey)
	assert.Equal(t, "/"+owner.Hex()+"/erc20", gotPath)
	assert.Equal(t, "0x2105", gotChain)
	require.Len(t, hs, 2)
	assert.Equal(t, "2.5", hs[0].Amount())
	assert.False(t, hs[0].Spam)
	assert.True(t, hs[1].Spam)
	assert.Equal(t, 6, hs[1].Token.Decimals)
}

func TestMoralisHTTPError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	m := NewMoralis(1, "K")
	m.baseURL = srv.URL
	_, err := m.GetHoldings(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewMoralisUnsupported(t *testing.T) {
	assert.Nil(t, NewMoralis(8453, ""))
	assert.Nil(t, NewMoralis(421614, "K"))
}

// ---------------------------------------------------------------------------
// Ankr
// ---------------------------------------------------------------------------

func TestAnkrSkipsNativeAndReadsUSD(t *testing.T) {
	var params map[string]interface{}
	srv := rpcServer(t, map[string]func(json.RawMessage) interface{}{
		"ankr_getAccountBalance": func(p json.RawMessage) interface{} {
			json.Unmarshal(p, &params) //nolint:errcheck
			return map[string]interface{}{"assets": []map[string]interface{}{
				{"tokenType": "NATIVE", "tokenSymbol": "ETH", "tokenDecimals": 18, "balanceRawInteger": "1000"},
				{
					"tokenType": "ERC20", "tokenSymbol": "DEGEN", "tokenName": "Degen", "tokenDecimals": 18,
					"contractAddress": degen.Hex(), "balanceRawInteger": "3000000000000000000", "balanceUsd": "0.42",
				},
			}}
		},
	})
	a := NewAnkr(8453, "")
	a.url = srv.URL

	hs, err := a.GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "3", hs[0].Amount())
	assert.True(t, hs[0].Priced)
	assert.InDelta(t, 0.42, hs[0].USD, 1e-9)
	assert.Equal(t, []interface{}{"base"}, params["blockchain"])
}

func TestNewAnkrKeyedURL(t *testing.T) {
	assert.Equal(t, ankrEndpoint+"/SECRET", NewAnkr(1, "SECRET").url)
	assert.Nil(t, NewAnkr(56, ""))
}

// ---------------------------------------------------------------------------
// Explorers
// ---------------------------------------------------------------------------

func TestBlockScoutTokenList(t *testing.T) {
	var q string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.RawQuery
		w.Write([]byte(`{"status":"1","message":"OK","result":[
			{"balance":"1500000","contractAddress":"` + usdc.Hex() + `","decimals":"6","name":"USD Coin","symbol":"USDC","type":"ERC-20"},
			{"balance":"1","contractAddress":"` + toby.Hex() + `","decimals":"","name":"NFT","symbol":"NFT","type":"ERC-721"}
		]}`)) //nolint:errcheck
	})
	hs, err := NewBlockScout(srv.URL).GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	assert.Contains(t, q, "action=tokenlist")
	require.Len(t, hs, 1)
	assert.Equal(t, "1.5", hs[0].Amount())
}

func TestBlockScoutNoTokens(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No tokens found","result":[]}`)) //nolint:errcheck
	})
	hs, err := NewBlockScout(srv.URL).GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, hs)
}

func TestBlockScoutAPIError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`)) //nolint:errcheck
	})
	_, err := NewBlockScout(srv.URL).GetHoldings(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Max rate limit reached")
}

func balanceNode(t *testing.T, balances map[common.Address]int64) *chain.EVMClient {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var msg struct {
			To   common.Address `json:"to"`
			Data string         `json:"data"`
		}
		require.NoError(t, json.Unmarshal(req.Params[0], &msg))
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		sel := contract.Selector("decimals()")
		if msg.Data[:10] == "0x"+hex.EncodeToString(sel[:]) {
			resp["result"] = "0x" + hex.EncodeToString(common.LeftPadBytes([]byte{18}, 32))
		} else if bal, ok := balances[msg.To]; ok {
			resp["result"] = "0x" + hex.EncodeToString(common.LeftPadBytes(big.NewInt(bal).Bytes(), 32))
		} else {
			resp["error"] = map[string]interface{}{"code": 3, "message": "execution reverted"}
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})
	return chain.NewEVMClient(srv.URL)
}

func TestEtherscanDiscoversTokensFromTransfers(t *testing.T) {
	var q string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.RawQuery
		w.Write([]byte(`{"status":"1","message":"OK","result":[
			{"contractAddress":"` + degen.Hex() + `","tokenName":"Degen","tokenSymbol":"DEGEN","tokenDecimal":"18"},
			{"contractAddress":"` + degen.Hex() + `","tokenName":"Degen","tokenSymbol":"DEGEN","tokenDecimal":"18"},
			{"contractAddress":"` + toby.Hex() + `","tokenName":"Toby","tokenSymbol":"TOBY","tokenDecimal":"18"}
		]}`)) //nolint:errcheck
	})
	client := balanceNode(t, map[common.Address]int64{degen: 7, toby: 0})
	e := NewEtherscan(84532, "EKEY", client)
	e.baseURL = srv.URL

	hs, err := e.GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	assert.Contains(t, q, "chainid=84532")
	assert.Contains(t, q, "action=tokentx")
	assert.Contains(t, q, "apikey=EKEY")
	require.Len(t, hs, 2, "deduplicated by contract")
	assert.Equal(t, int64(7), hs[0].Balance.Int64())
}

func TestNewEtherscanNilWithoutKey(t *testing.T) {
	assert.Nil(t, NewEtherscan(1, "", nil))
}

// ---------------------------------------------------------------------------
// RPC fallback
// ---------------------------------------------------------------------------

func TestRPCWatchList(t *testing.T) {
	client := balanceNode(t, map[common.Address]int64{degen: 42, usdc: 0})
	cache := NewMemoryCache()
	r := NewRPC(client, 8453, []common.Address{usdc, degen}, cache)

	hs, err := r.GetHoldings(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, degen, hs[0].Token.Address)
	assert.Equal(t, 18, hs[0].Token.Decimals)

	_, cached := cache.Get(context.Background(), 8453, degen)
	assert.True(t, cached)
}

func TestRPCBalanceFailure(t *testing.T) {
	client := balanceNode(t, nil)
	_, err := NewRPC(client, 8453, []common.Address{degen}, nil).GetHoldings(context.Background(), owner)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

func TestBuildRegistryOrder(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("base")
	require.NoError(t, err)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.SetProviderKey("alchemy", "A")
	cfg.SetProviderKey("etherscan", "E")

	r := BuildRegistry(c, "mainnet", chain.NewEVMClient("http://127.0.0.1:1"), cfg, nil)
	assert.Equal(t, []string{"alchemy", "ankr", "blockscout", "etherscan", "rpc"}, r.Names())
}

func TestWatchListDedup(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("base")
	require.NoError(t, err)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	stable := c.Assets("testnet").Stablecoin
	cfg.WatchTokens = map[string][]string{"base": {degen.Hex(), stable.Hex(), "not-an-address"}}

	got := WatchList(c, "testnet", cfg)
	assert.Equal(t, []common.Address{degen, stable, c.Assets("testnet").WrappedNative}, got)
}

// ---------------------------------------------------------------------------
// Dust filter
// ---------------------------------------------------------------------------

func TestDustFilter(t *testing.T) {
	spam := holding(toby, "SCAM", 1)
	spam.Spam = true
	whale := holding(common.HexToAddress("0x01"), "BIG", 1)
	whale.USD, whale.Priced = 250, true
	small := holding(degen, "DEGEN", 1)
	small.USD, small.Priced = 0.8, true
	unpriced := holding(common.HexToAddress("0x02"), "NEW", 1)
	stable := holding(usdc, "USDC", 1)

	f := DustFilter{Exclude: []common.Address{usdc}, MaxUSD: 10}
	dust, kept := f.Apply([]Holding{spam, whale, small, unpriced, stable})
	assert.Equal(t, []Holding{small, unpriced}, dust)
	assert.Equal(t, []Holding{whale, stable}, kept)

	f.IncludeSpam = true
	dust, _ = f.Apply([]Holding{spam})
	assert.Len(t, dust, 1)
}

func TestWithout(t *testing.T) {
	hs := []Holding{holding(degen, "DEGEN", 1), holding(toby, "TOBY", 1)}
	out := Without(hs, degen)
	require.Len(t, out, 1)
	assert.Equal(t, toby, out[0].Token.Address)
	assert.Len(t, hs, 2, "input untouched")
}

// ---------------------------------------------------------------------------
// Metadata cache
// ---------------------------------------------------------------------------

func TestMemoryCacheKeyedByChain(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	c.Put(ctx, 8453, contract.TokenInfo{Address: degen, Symbol: "DEGEN", Decimals: 18})

	got, ok := c.Get(ctx, 8453, degen)
	require.True(t, ok)
	assert.Equal(t, "DEGEN", got.Symbol)
	_, ok = c.Get(ctx, 84532, degen)
	assert.False(t, ok)
}

// TestRedisCache needs a live server: DUSTVAULT_TEST_REDIS=redis://localhost:6379/15
func TestRedisCache(t *testing.T) {
	url := os.Getenv("DUSTVAULT_TEST_REDIS")
	if url == "" {
		t.Skip("DUSTVAULT_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, url, time.Minute, nil)
	require.NoError(t, err)
	defer c.Close()

	info := contract.TokenInfo{Address: toby, Symbol: "TOBY", Name: "Toby", Decimals: 18}
	c.Put(ctx, 8453, info)
	got, ok := c.Get(ctx, 8453, toby)
	require.True(t, ok)
	assert.Equal(t, info, got)
}

func TestNewRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", time.Minute, nil)
	assert.Error(t, err)
}
