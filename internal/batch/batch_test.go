package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/Mohsinsiddi/dustvault/internal/chain"
	"github.com/Mohsinsiddi/dustvault/internal/logging"
	"github.com/Mohsinsiddi/dustvault/internal/userop"
	"github.com/Mohsinsiddi/dustvault/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	token      = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	swapper    = common.HexToAddress("0x000000000000000000000000000000000000bEEF")
	router     = common.HexToAddress("0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24")
	recipient  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	owner      = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	vault      = common.HexToAddress("0x00000000000000000000000000000000000Da017")
	entryPoint = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	opHash     = common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001")
	txHash     = common.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000000002")
)

// ---------------------------------------------------------------------------
// Batch building and ordering
// ---------------------------------------------------------------------------

func TestApproveThenSpendIsValid(t *testing.T) {
	amount := big.NewInt(1_000_000)
	b := ApproveAndSwap(SwapViaSwapper(swapper, token, amount))
	require.Len(t, b, 2)
	assert.Equal(t, "approve", b[0].Label)
	assert.NoError(t, b.Validate())
}

func TestSpendBeforeApproveIsRejected(t *testing.T) {
	amount := big.NewInt(1_000_000)
	swap := SwapViaSwapper(swapper, token, amount)
	b := Batch{swap, Approve(token, swapper, amount)}
	assert.ErrorIs(t, b.Validate(), ErrApprovalOrder)
}

func TestApprovalIsConsumed(t *testing.T) {
	amount := big.NewInt(500)
	b := Batch{
		Approve(token, swapper, amount),
		SwapViaSwapper(swapper, token, amount),
		SwapViaSwapper(swapper, token, big.NewInt(1)),
	}
	assert.ErrorIs(t, b.Validate(), ErrApprovalOrder)
}

func TestApprovalToOtherSpenderDoesNotCount(t *testing.T) {
	amount := big.NewInt(500)
	b := Batch{Approve(token, router, amount), SwapViaSwapper(swapper, token, amount)}
	assert.ErrorIs(t, b.Validate(), ErrApprovalOrder)
}

func TestEmptyBatchIsInvalid(t *testing.T) {
	assert.Error(t, Batch{}.Validate())
}

func TestRouterSwapSpendsFirstPathToken(t *testing.T) {
	path := []common.Address{token, common.HexToAddress("0x4200000000000000000000000000000000000006")}
	c := SwapViaRouter(router, path, big.NewInt(10), big.NewInt(9), recipient, 1_700_000_000, true)
	require.NotNil(t, c.Spends)
	assert.Equal(t, token, c.Spends.Token)
	assert.Equal(t, router, c.Spends.Spender)
	assert.NoError(t, ApproveAndSwap(c).Validate())
}

func TestQuoteSwapWithoutAllowanceTarget(t *testing.T) {
	c := SwapViaQuote(router, []byte{1, 2, 3, 4}, big.NewInt(7), token, common.Address{}, big.NewInt(10))
	assert.Nil(t, c.Spends)
	assert.Len(t, ApproveAndSwap(c), 1)
}

func TestBatchValueAndCalls(t *testing.T) {
	b := Batch{
		TransferETH(recipient, big.NewInt(3)),
		Transfer(token, recipient, big.NewInt(9)),
		TransferETH(recipient, big.NewInt(4)),
	}
	assert.Equal(t, "7", b.Value().String())
	calls := b.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, token, calls[1].To)
	assert.Equal(t, b[1].Data, calls[1].Data)
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestRouteAuto(t *testing.T) {
	for kind, want := range map[account.Kind]Path{
		account.KindCoinbase: PathSponsored,
		account.KindSafe:     PathSponsored,
		account.KindSimple:   PathDirect,
	} {
		got, err := Route(kind, ModeAuto)
		require.NoError(t, err)
		assert.Equal(t, want, got, kind)
	}
}

func TestRouteForced(t *testing.T) {
	p, err := Route(account.KindSimple, ModeSponsored)
	require.NoError(t, err)
	assert.Equal(t, PathSponsored, p)

	p, err = Route(account.KindCoinbase, ModeDirect)
	require.NoError(t, err)
	assert.Equal(t, PathDirect, p)

	_, err = Route(account.KindSafe, "fastest")
	assert.Error(t, err)
	_, err = Route(account.KindAuto, ModeAuto)
	assert.ErrorIs(t, err, account.ErrUnknownKind)
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"user rejected code", &chain.RPCError{Code: 4001, Message: "User rejected the request."}, ErrUserRejected},
		{"unknown chain code", &chain.RPCError{Code: 4902, Message: "Unrecognized chain ID"}, ErrWrongNetwork},
		{"disconnected chain", &chain.RPCError{Code: 4901, Message: "chain disconnected"}, ErrWrongNetwork},
		{"chain mismatch", fmt.Errorf("send: %w", wallet.ErrChainMismatch), ErrWrongNetwork},
		{"rejection text", errors.New("MetaMask Tx Signature: User denied transaction signature."), ErrUserRejected},
		{"insufficient funds", errors.New("insufficient funds for gas * price + value"), ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyRevert(t *testing.T) {
	err := Classify(&chain.RPCError{Code: 3, Message: "execution reverted: STF"})
	var rev *RevertError
	require.ErrorAs(t, err, &rev)
	assert.Equal(t, "STF", rev.Reason)
	assert.Equal(t, "execution reverted: STF", rev.Error())
}

func TestClassifyPassesThrough(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Same(t, plain, Classify(plain))
	assert.Nil(t, Classify(nil))
	assert.ErrorIs(t, Classify(context.Canceled), context.Canceled)

	already := fmt.Errorf("%w: x", ErrUserRejected)
	assert.Same(t, already, Classify(already))
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(nil))
	assert.False(t, Terminal(fmt.Errorf("%w: x", ErrWrongNetwork)))
	assert.True(t, Terminal(ErrUserRejected))
	assert.True(t, Terminal(&RevertError{Reason: "STF"}))
	assert.True(t, Terminal(fmt.Errorf("%w: policy", ErrSponsorshipRejected)))
	assert.False(t, Terminal(context.DeadlineExceeded))
	assert.False(t, Terminal(errors.New("connection reset")))
}

func TestBatchMethods(t *testing.T) {
	b := ApproveAndSwap(SwapViaSwapper(swapper, token, big.NewInt(1)))
	b = append(b, Call{Target: owner, Value: big.NewInt(1)})
	assert.Equal(t, []string{"approve", "swapTokenForETH", "send"}, b.Methods())
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeNode answers node and bundler methods from one endpoint.
type fakeNode struct {
	mu        sync.Mutex
	code      string
	sponsor   interface{} // result or *chain.RPCError
	receipt   interface{}
	txReceipt interface{}
	callErr   *chain.RPCError
	eps       []string // nil: eth_supportedEntryPoints is unknown
	counts    map[string]int
	sent      []json.RawMessage
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		code: "0x60",
		eps:  []string{entryPoint.Hex()},
		sponsor: map[string]interface{}{
			"paymasterAndData":     "0xdeadbeef",
			"callGasLimit":         "0x186a0",
			"verificationGasLimit": "0x30d40",
			"preVerificationGas":   "0xc350",
		},
		receipt: map[string]interface{}{
			"userOpHash": opHash.Hex(),
			"success":    true,
			"receipt":    map[string]interface{}{"transactionHash": txHash.Hex()},
		},
		txReceipt: map[string]interface{}{
			"transactionHash": txHash.Hex(),
			"blockNumber":     "0x10",
			"gasUsed":         "0x5208",
			"status":          "0x1",
		},
		counts: map[string]int{},
	}
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[method]
}

func (n *fakeNode) serve(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		n.mu.Lock()
		n.counts[req.Method]++
		n.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		var result interface{}
		switch req.Method {
		case "eth_getCode":
			result = n.code
		case "eth_call":
			if n.callErr != nil {
				resp["error"] = n.callErr
			} else {
				result = "0x0000000000000000000000000000000000000000000000000000000000000005"
			}
		case "eth_supportedEntryPoints":
			if n.eps == nil {
				resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
			} else {
				result = n.eps
			}
		case "pimlico_getUserOperationGasPrice":
			tier := map[string]string{"maxFeePerGas": "0x3b9aca00", "maxPriorityFeePerGas": "0x5f5e100"}
			result = map[string]interface{}{"slow": tier, "standard": tier, "fast": tier}
		case "pm_sponsorUserOperation":
			result = n.sponsor
		case "eth_sendUserOperation":
			n.mu.Lock()
			n.sent = append(n.sent, req.Params[0])
			n.mu.Unlock()
			result = opHash.Hex()
		case "eth_getUserOperationReceipt":
			result = n.receipt
		case "eth_getTransactionReceipt":
			result = n.txReceipt
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		if e, ok := result.(*chain.RPCError); ok {
			resp["error"] = e
		} else if _, failed := resp["error"]; !failed {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func testSigner(t *testing.T) wallet.SignerAdapter {
	t.Helper()
	ks := wallet.NewInMemoryKeystore()
	ref, err := ks.Store("owner", testKey)
	require.NoError(t, err)
	s, err := wallet.NewKeystoreSigner(&wallet.Wallet{Name: "owner", Type: wallet.TypeSigning, KeyRef: ref}, ks, 84532)
	require.NoError(t, err)
	return s
}

func sponsored(t *testing.T, n *fakeNode) *Sponsored {
	url := n.serve(t)
	client := chain.NewEVMClient(url)
	return &Sponsored{
		Client:     client,
		Bundler:    userop.NewClient(url, logging.Discard()),
		Resolver:   account.NewResolver(client, account.Contracts{EntryPoint: entryPoint}, account.KindSimple, logging.Discard()),
		Signer:     testSigner(t),
		EntryPoint: entryPoint,
		ChainID:    84532,
		Timeout:    time.Second,
		Interval:   5 * time.Millisecond,
		Log:        logging.Discard(),
	}
}

func handle(kind account.Kind) *account.Handle {
	return &account.Handle{Address: vault, Kind: kind, Owner: owner}
}

func sweepBatch() Batch {
	return ApproveAndSwap(SwapViaSwapper(swapper, token, big.NewInt(1_000_000)))
}

// fakeTransactor replays errs in order, then succeeds.
type fakeTransactor struct {
	errs     []error
	switches int
	sends    []wallet.TxRequest
}

func (f *fakeTransactor) Address() common.Address                { return owner }
func (f *fakeTransactor) ChainID(context.Context) (int64, error) { return 84532, nil }

func (f *fakeTransactor) SwitchChain(context.Context, int64) error {
	f.switches++
	return nil
}

func (f *fakeTransactor) SendTransaction(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	f.sends = append(f.sends, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return common.Hash{}, err
	}
	return txHash, nil
}

func direct(t *testing.T, n *fakeNode, tx *fakeTransactor) *Direct {
	client := chain.NewEVMClient(n.serve(t))
	return &Direct{
		Client:     client,
		Resolver:   account.NewResolver(client, account.Contracts{}, account.KindSimple, logging.Discard()),
		Transactor: tx,
		ChainID:    84532,
		Timeout:    time.Second,
		Interval:   5 * time.Millisecond,
		Log:        logging.Discard(),
	}
}

// ---------------------------------------------------------------------------
// Sponsored path
// ---------------------------------------------------------------------------

func TestSponsoredSubmit(t *testing.T) {
	n := newFakeNode()
	s := sponsored(t, n)

	res, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	require.NoError(t, err)
	assert.Equal(t, PathSponsored, res.Path)
	assert.Equal(t, opHash, res.UserOpHash)
	assert.Equal(t, txHash, res.TxHash)

	require.Len(t, n.sent, 1)
	var op userop.Operation
	require.NoError(t, json.Unmarshal(n.sent[0], &op))
	assert.Equal(t, vault, op.Sender)
	assert.Equal(t, "5", op.Nonce.String())
	assert.Empty(t, op.InitCode)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, op.PaymasterAndData)
	assert.Equal(t, "1000000000", op.MaxFeePerGas.String())
	assert.Len(t, op.Signature, 65)

	// The signature covers the final operation.
	hash := op.Hash(entryPoint, 84532)
	signer, err := wallet.VerifyMessage(hash.Bytes(), op.Signature)
	require.NoError(t, err)
	assert.Equal(t, owner, signer)
}

func TestSponsoredFetchesGasPriceEverySubmit(t *testing.T) {
	n := newFakeNode()
	s := sponsored(t, n)
	for i := 0; i < 2; i++ {
		_, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, n.count("pimlico_getUserOperationGasPrice"))
}

func TestSponsoredAddsInitCodeWhenUndeployed(t *testing.T) {
	n := newFakeNode()
	n.code = "0x"
	s := sponsored(t, n)

	_, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	require.NoError(t, err)
	var op userop.Operation
	require.NoError(t, json.Unmarshal(n.sent[0], &op))
	assert.NotEmpty(t, op.InitCode)
}

func TestSponsorshipRejectionIsTerminal(t *testing.T) {
	n := newFakeNode()
	n.sponsor = &chain.RPCError{Code: -32500, Message: "sponsorship policy rejected"}
	s := sponsored(t, n)
	before := testutil.ToFloat64(Submissions.WithLabelValues("sponsored", "sponsorship_rejected"))

	_, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	assert.ErrorIs(t, err, ErrSponsorshipRejected)
	assert.True(t, Terminal(err))
	assert.Zero(t, n.count("eth_sendUserOperation"))
	assert.Zero(t, n.count("eth_sendRawTransaction"))
	assert.Equal(t, before+1, testutil.ToFloat64(Submissions.WithLabelValues("sponsored", "sponsorship_rejected")))
}

func TestSponsoredRevertCarriesReason(t *testing.T) {
	n := newFakeNode()
	n.receipt = map[string]interface{}{
		"userOpHash": opHash.Hex(),
		"success":    false,
		"reason":     "STF",
		"receipt":    map[string]interface{}{"transactionHash": txHash.Hex()},
	}
	s := sponsored(t, n)

	_, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	var rev *RevertError
	require.ErrorAs(t, err, &rev)
	assert.Equal(t, "STF", rev.Reason)
	assert.Equal(t, opHash, rev.Hash)
}

func TestSponsoredRefusesUnsupportedEntryPoint(t *testing.T) {
	n := newFakeNode()
	n.eps = []string{"0x0000000071727De22E5E9d8BAf0edAc6f37da032"}
	s := sponsored(t, n)

	_, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	assert.ErrorIs(t, err, ErrEntryPointUnsupported)
	assert.Zero(t, n.count("pm_sponsorUserOperation"))
}

func TestSponsoredChecksEntryPointOnce(t *testing.T) {
	n := newFakeNode()
	s := sponsored(t, n)

	for range 2 {
		_, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, n.count("eth_supportedEntryPoints"))
	assert.Equal(t, 2, n.count("eth_sendUserOperation"))
}

func TestSponsoredToleratesBundlerWithoutEntryPointList(t *testing.T) {
	n := newFakeNode()
	n.eps = nil
	s := sponsored(t, n)

	_, err := s.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	require.NoError(t, err)
	assert.Equal(t, 1, n.count("eth_sendUserOperation"))
}

func TestSponsoredRejectsMisorderedBatch(t *testing.T) {
	n := newFakeNode()
	s := sponsored(t, n)
	swap := SwapViaSwapper(swapper, token, big.NewInt(1))
	_, err := s.Submit(context.Background(), handle(account.KindSimple), Batch{swap, Approve(token, swapper, big.NewInt(1))})
	assert.ErrorIs(t, err, ErrApprovalOrder)
	assert.Zero(t, n.count("pm_sponsorUserOperation"))
}

// ---------------------------------------------------------------------------
// Direct path
// ---------------------------------------------------------------------------

func TestDirectSubmit(t *testing.T) {
	n := newFakeNode()
	tx := &fakeTransactor{}
	d := direct(t, n, tx)

	res, err := d.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	require.NoError(t, err)
	assert.Equal(t, PathDirect, res.Path)
	assert.Equal(t, txHash, res.TxHash)
	assert.Equal(t, 1, tx.switches)
	require.Len(t, tx.sends, 1)
	assert.Equal(t, vault, tx.sends[0].To)
}

func TestDirectRetriesOnceOnWrongNetwork(t *testing.T) {
	n := newFakeNode()
	tx := &fakeTransactor{errs: []error{&chain.RPCError{Code: 4901, Message: "chain disconnected"}}}
	d := direct(t, n, tx)

	_, err := d.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	require.NoError(t, err)
	assert.Equal(t, 2, tx.switches)
	assert.Len(t, tx.sends, 2)
}

func TestDirectGivesUpAfterSecondWrongNetwork(t *testing.T) {
	n := newFakeNode()
	mismatch := fmt.Errorf("%w: node serves 1, want 84532", wallet.ErrChainMismatch)
	tx := &fakeTransactor{errs: []error{mismatch, mismatch, mismatch}}
	d := direct(t, n, tx)

	_, err := d.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	assert.ErrorIs(t, err, ErrWrongNetwork)
	assert.Len(t, tx.sends, 2)
}

func TestDirectUserRejectionIsNotRetried(t *testing.T) {
	n := newFakeNode()
	tx := &fakeTransactor{errs: []error{&chain.RPCError{Code: 4001, Message: "User rejected the request."}}}
	d := direct(t, n, tx)

	_, err := d.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.Len(t, tx.sends, 1)
}

func TestDirectRevertReplaysReason(t *testing.T) {
	n := newFakeNode()
	n.txReceipt = map[string]interface{}{
		"transactionHash": txHash.Hex(),
		"blockNumber":     "0x10",
		"gasUsed":         "0x5208",
		"status":          "0x0",
	}
	n.callErr = &chain.RPCError{Code: 3, Message: "execution reverted: TransferHelper: TRANSFER_FROM_FAILED"}
	d := direct(t, n, &fakeTransactor{})

	_, err := d.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	var rev *RevertError
	require.ErrorAs(t, err, &rev)
	assert.Equal(t, "TransferHelper: TRANSFER_FROM_FAILED", rev.Reason)
	assert.Equal(t, txHash, rev.Hash)
}

func TestDirectRequiresDeployedVault(t *testing.T) {
	n := newFakeNode()
	n.code = "0x"
	tx := &fakeTransactor{}
	d := direct(t, n, tx)

	_, err := d.Submit(context.Background(), handle(account.KindSimple), sweepBatch())
	assert.ErrorIs(t, err, ErrNotDeployed)
	assert.Empty(t, tx.sends)
}
