package ui

import (
	"bytes"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/batch"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/contract"
	"github.com/Mohsinsiddi/dustvault/internal/providers"
	"github.com/Mohsinsiddi/dustvault/internal/vault"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

var (
	degen = providers.Holding{
		Token:   contract.TokenInfo{Address: common.HexToAddress("0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"), Symbol: "DEGEN", Decimals: 18},
		Balance: new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17)),
		USD:     0.42,
		Priced:  true,
	}
	spam = providers.Holding{
		Token:   contract.TokenInfo{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Symbol: "FREE", Decimals: 6},
		Balance: big.NewInt(1_000_000),
		Spam:    true,
	}
)

func base(t *testing.T) *chain.Chain {
	t.Helper()
	c, err := chain.NewRegistry().GetByName("base")
	require.NoError(t, err)
	return c
}

func TestHoldingsTable(t *testing.T) {
	out := HoldingsTable([]providers.Holding{degen, spam}).Render()
	assert.Contains(t, out, "DEGEN")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "$0.42")
	assert.Contains(t, out, "FREE ⚑")
	assert.Contains(t, out, "0x4ed4…efed")
}

func TestPortfolio(t *testing.T) {
	p := &vault.Portfolio{
		Owner:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Source:   "alchemy",
		Dust:     []providers.Holding{degen},
		Kept:     []providers.Holding{spam},
		DustUSD:  0.42,
		Warnings: []string{"prices: timeout"},
	}
	out := Portfolio(p)
	assert.Contains(t, out, "1 token(s)")
	assert.Contains(t, out, "via alchemy")
	assert.Contains(t, out, "1 holding(s) above the dust ceiling")
	assert.Contains(t, out, "prices: timeout")

	p.Remove(degen.Token.Address)
	assert.Contains(t, Portfolio(p), "no dust found")
}

func TestPlanTable(t *testing.T) {
	plan := &vault.Plan{
		Venue:       vault.VenueZeroEx,
		Target:      vault.TargetETH,
		Legs:        []vault.Leg{{Holding: degen, MinOut: big.NewInt(1e15)}},
		Skipped:     []vault.Skip{{Holding: spam, Reason: "no liquidity"}},
		ExpectedOut: big.NewInt(11e14),
	}
	out := PlanTable(plan, "ETH", 18)
	assert.Contains(t, out, "MIN ETH")
	assert.Contains(t, out, "0.001")
	assert.Contains(t, out, "expected ≈ 0.0011 ETH via 0x")
	assert.Contains(t, out, "skip FREE: no liquidity")
}

func TestPlanTableSwapperVenue(t *testing.T) {
	plan := &vault.Plan{Venue: vault.VenueSwapper, Legs: []vault.Leg{{Holding: degen}}, ExpectedOut: new(big.Int)}
	out := PlanTable(plan, "ETH", 18)
	assert.Contains(t, out, "market")
	assert.Contains(t, out, "venue: swapper")
}

func testOverview() *vault.Overview {
	return &vault.Overview{
		Handle: &account.Handle{
			Address: common.HexToAddress("0x3333333333333333333333333333333333333333"),
			Kind:    account.KindCoinbase,
			Owner:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		},
		Deployed:     true,
		VaultBalance: big.NewInt(5e17),
		OwnerBalance: big.NewInt(0),
		Path:         batch.PathSponsored,
	}
}

func TestOverview(t *testing.T) {
	out := Overview(testOverview(), base(t), "mainnet")
	assert.Contains(t, out, "0x3333333333333333333333333333333333333333")
	assert.Contains(t, out, "coinbase")
	assert.Contains(t, out, "deployed")
	assert.Contains(t, out, "0.5")
	assert.Contains(t, out, "sponsored")
}

func TestReceipt(t *testing.T) {
	c := base(t)
	tx := common.HexToHash("0xabc")
	r := &batch.Result{Path: batch.PathDirect, TxHash: tx, Elapsed: 1500 * time.Millisecond}
	out := Receipt(r, c, "mainnet")
	assert.Contains(t, out, tx.Hex())
	assert.Contains(t, out, "1.5s")
	assert.NotContains(t, out, "UserOp")
	assert.Contains(t, out, c.TxURL("mainnet", tx.Hex()))

	r.UserOpHash = common.HexToHash("0xdef")
	assert.Contains(t, Receipt(r, c, "mainnet"), "UserOp")
}
