// Package poll runs a refresh function on a fixed interval with explicit
// cancellation, restart on dependency change, and hold/release around
// mutating operations.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/dustvault/internal/logging"
)

// Func is one refresh. It should honour ctx.
type Func func(ctx context.Context) error

// Poller calls a Func immediately on start and then every interval.
type Poller struct {
	interval time.Duration
	log      *slog.Logger

	// OnError, when set, receives every failed refresh.
	OnError func(error)

	lifecycle sync.Mutex // serialises Start, Restart and Stop
	parent    context.Context
	fn        Func
	cancel    context.CancelFunc
	done      chan struct{}

	gate  sync.Mutex // held for the duration of a refresh
	holds atomic.Int32
	kick  chan struct{}
}

// New returns a stopped poller.
func New(interval time.Duration, fn Func, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		interval: interval,
		fn:       fn,
		log:      logging.Or(log).With("component", "poller"),
		kick:     make(chan struct{}, 1),
	}
}

// Start begins polling until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.stopLocked()
	p.parent = ctx
	p.startLocked()
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
}

// Restart swaps the refresh function. The previous loop is cancelled and has
// exited before the new one begins. A no-op start if the poller is stopped.
func (p *Poller) Restart(fn Func) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.stopLocked()
	p.fn = fn
	if p.parent != nil && p.parent.Err() == nil {
		p.startLocked()
	}
}

// Stop cancels the loop and waits for it to exit.
func (p *Poller) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.stopLocked()
	p.parent = nil
}

// Refresh asks the running loop for an immediate refresh. Extra requests
// while one is pending are dropped.
func (p *Poller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// RefreshAfter schedules a Refresh after d, for indexers that lag the chain.
func (p *Poller) RefreshAfter(d time.Duration) *time.Timer {
	return time.AfterFunc(d, p.Refresh)
}

// Hold pauses polling and waits for any in-flight refresh to finish. The
// returned release resumes polling with an immediate refresh once the last
// hold is released. Release is idempotent.
func (p *Poller) Hold(ctx context.Context) (release func(), err error) {
	p.holds.Add(1)

	acquired := make(chan struct{})
	go func() {
		p.gate.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		p.gate.Unlock()
	case <-ctx.Done():
		go func() {
			<-acquired
			p.gate.Unlock()
		}()
		p.holds.Add(-1)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if p.holds.Add(-1) == 0 {
				p.Refresh()
			}
		})
	}, nil
}

// Held reports whether a hold is active.
func (p *Poller) Held() bool { return p.holds.Load() > 0 }

func (p *Poller) startLocked() {
	ctx, cancel := context.WithCancel(p.parent)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	fn := p.fn
	go func() {
		defer close(done)
		p.loop(ctx, fn)
	}()
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

func (p *Poller) loop(ctx context.Context, fn Func) {
	p.tick(ctx, fn)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx, fn)
		case <-p.kick:
			p.tick(ctx, fn)
		}
	}
}

func (p *Poller) tick(ctx context.Context, fn Func) {
	p.gate.Lock()
	defer p.gate.Unlock()
	if fn == nil || ctx.Err() != nil || p.Held() {
		return
	}
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		p.log.Warn("refresh failed", "err", err)
		if p.OnError != nil {
			p.OnError(err)
		}
	}
}
