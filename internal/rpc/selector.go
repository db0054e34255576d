package rpc

import (
	"context"
	"log/slog"

	"github.com/Mohsinsiddi/dustvault/internal/logging"
)

// SelectBest checks urls and returns the one picked by algorithm. With a
// single URL the check still runs so a node on the wrong chain fails fast.
func SelectBest(ctx context.Context, urls []string, algorithm string, wantChainID int64, log *slog.Logger) (string, error) {
	log = logging.Or(log)
	if len(urls) == 0 {
		return "", ErrNoHealthyRPC
	}

	endpoints := CheckAll(ctx, urls, wantChainID)
	for _, e := range endpoints {
		if e.Err != nil {
			log.Debug("rpc check failed", "url", e.URL, "err", e.Err)
		}
	}

	winner, err := NewPicker(Algorithm(algorithm)).Pick(endpoints)
	if err != nil {
		return "", err
	}
	log.Debug("rpc selected", "url", winner.URL, "latency", winner.Latency, "block", winner.BlockNumber, "algorithm", algorithm)
	return winner.URL, nil
}
