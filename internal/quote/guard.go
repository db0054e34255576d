package quote

import (
	"context"
	"time"
)

// DefaultMaxAge is how long a quote may be used before it is re-fetched.
const DefaultMaxAge = 15 * time.Second

// Guard ensures a quote is fresh at submission time.
type Guard struct {
	fetcher Fetcher
	maxAge  time.Duration
	now     func() time.Time
}

func NewGuard(f Fetcher, maxAge time.Duration) *Guard {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Guard{fetcher: f, maxAge: maxAge, now: time.Now}
}

// Stale reports whether q is older than the guard's maximum age.
func (g *Guard) Stale(q *Quote) bool {
	return q.FetchedAt.IsZero() || q.Age(g.now()) > g.maxAge
}

// Fresh returns q unchanged when it is within the maximum age and otherwise
// re-fetches it with the same request.
func (g *Guard) Fresh(ctx context.Context, q *Quote) (*Quote, bool, error) {
	if !g.Stale(q) {
		return q, false, nil
	}
	nq, err := g.fetcher.Quote(ctx, q.Request)
	if err != nil {
		return nil, false, err
	}
	return nq, true, nil
}
