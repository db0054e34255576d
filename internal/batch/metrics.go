package batch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions counts finished submissions by path and outcome.
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dustvault_submissions_total",
			Help: "Batch submissions by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	// SubmitLatency tracks time from submission to confirmed receipt.
	SubmitLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dustvault_submit_latency_seconds",
			Help:    "Time from submission to receipt",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"path"},
	)
)

// outcome labels an error for Submissions.
func outcome(err error) string {
	var rev *RevertError
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, ErrUserRejected):
		return "rejected"
	case errors.Is(err, ErrWrongNetwork):
		return "wrong_network"
	case errors.Is(err, ErrSponsorshipRejected):
		return "sponsorship_rejected"
	case errors.As(err, &rev):
		return "reverted"
	default:
		return "error"
	}
}
