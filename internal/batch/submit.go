package batch

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/account"
	"github.com/ethereum/go-ethereum/common"
)

// Result describes a confirmed batch.
type Result struct {
	Path       Path
	Sender     common.Address
	UserOpHash common.Hash // zero on the direct path
	TxHash     common.Hash
	Elapsed    time.Duration
}

// Submitter sends a batch from an account and waits for confirmation.
// A nil error means the receipt confirmed success.
type Submitter interface {
	Path() Path
	Submit(ctx context.Context, h *account.Handle, b Batch) (*Result, error)
}

func record(path Path, start time.Time, err error) {
	Submissions.WithLabelValues(string(path), outcome(err)).Inc()
	if err == nil {
		SubmitLatency.WithLabelValues(string(path)).Observe(time.Since(start).Seconds())
	}
}
