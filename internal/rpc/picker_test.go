package rpc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(url string, latency time.Duration, block uint64) rpc.Endpoint {
	return rpc.Endpoint{URL: url, Latency: latency, BlockNumber: block}
}

func failed(url string) rpc.Endpoint {
	return rpc.Endpoint{URL: url, Err: errors.New("dial tcp: refused")}
}

func TestPickerSelectsFastest(t *testing.T) {
	endpoints := []rpc.Endpoint{
		ok("http://slow.rpc", 200*time.Millisecond, 100),
		ok("http://fast.rpc", 30*time.Millisecond, 100),
		ok("http://medium.rpc", 80*time.Millisecond, 100),
	}

	winner, err := rpc.NewPicker(rpc.AlgorithmFastest).Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://fast.rpc", winner.URL)
}

func TestPickerDiscardsStaleNodes(t *testing.T) {
	endpoints := []rpc.Endpoint{
		ok("http://fresh.rpc", 50*time.Millisecond, 1000),
		ok("http://stale.rpc", 10*time.Millisecond, 990),
	}

	winner, err := rpc.NewPicker(rpc.AlgorithmFastest).Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://fresh.rpc", winner.URL, "stale node should be discarded even if faster")
}

func TestPickerSkipsWrongChain(t *testing.T) {
	wrong := ok("http://mainnet.rpc", 5*time.Millisecond, 100)
	wrong.ChainID, wrong.WantChainID = 8453, 84532
	right := ok("http://sepolia.rpc", 90*time.Millisecond, 100)
	right.ChainID, right.WantChainID = 84532, 84532

	winner, err := rpc.NewPicker(rpc.AlgorithmFastest).Pick([]rpc.Endpoint{wrong, right})
	require.NoError(t, err)
	assert.Equal(t, "http://sepolia.rpc", winner.URL)
}

func TestPickerRoundRobinCycles(t *testing.T) {
	endpoints := []rpc.Endpoint{ok("http://rpc1", 0, 100), failed("http://down"), ok("http://rpc2", 0, 100)}

	picker := rpc.NewPicker(rpc.AlgorithmRoundRobin)
	first, _ := picker.Pick(endpoints)
	second, _ := picker.Pick(endpoints)
	third, _ := picker.Pick(endpoints)

	assert.Equal(t, "http://rpc1", first.URL)
	assert.Equal(t, "http://rpc2", second.URL)
	assert.Equal(t, first.URL, third.URL)
}

func TestPickerFailover(t *testing.T) {
	endpoints := []rpc.Endpoint{
		failed("http://primary"),
		ok("http://secondary", 300*time.Millisecond, 100),
		ok("http://tertiary", 10*time.Millisecond, 100),
	}

	winner, err := rpc.NewPicker(rpc.AlgorithmFailover).Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://secondary", winner.URL, "should failover to secondary when primary is down")
}

func TestPickerErrorsWhenAllUnhealthy(t *testing.T) {
	_, err := rpc.NewPicker(rpc.AlgorithmFastest).Pick([]rpc.Endpoint{failed("a"), failed("b")})
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)

	_, err = rpc.NewPicker(rpc.AlgorithmFastest).Pick(nil)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
}

func TestPickerDefaultsToFastest(t *testing.T) {
	endpoints := []rpc.Endpoint{ok("http://a", 90*time.Millisecond, 5), ok("http://b", 10*time.Millisecond, 5)}
	winner, err := rpc.NewPicker("").Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://b", winner.URL)
}
