// Package ratelimit implements per-caller fixed-window quotas for
// vote, submit and email actions.
//
// Windows are per key: each "{category}:{identifier}" window starts at that
// key's first request (or its last reset), not at a shared clock tick.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/murphyslaws/murphys-laws/internal/observability"
)

// Unlimited is the Remaining value reported for categories without a quota.
const Unlimited = -1

// DefaultSweepInterval is how often abandoned records are collected.
const DefaultSweepInterval = time.Minute

// sweepGrace is how long a closed window is kept before collection.
const sweepGrace = time.Minute

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetTime is the end of the current window; zero for unknown categories.
	ResetTime time.Time
}

// Limiter decides whether an identified caller may perform an action.
type Limiter struct {
	store         Store
	clock         func() time.Time
	sweepInterval time.Duration

	mu sync.Mutex

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithSweepInterval sets the background sweep period. Non-positive values
// keep the default.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// New creates a limiter over store. A nil store gets a fresh MemoryStore.
func New(store Store, opts ...Option) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		store:         store,
		clock:         time.Now,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records an attempt by identifier in category and reports whether it
// is allowed. It never fails: unknown categories are not limited.
func (l *Limiter) Check(identifier string, category Category) Decision {
	cfg, ok := Lookup(category)
	if !ok {
		return Decision{Allowed: true, Remaining: Unlimited}
	}

	key := string(category) + ":" + identifier

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	rec, found := l.store.Get(key)
	if !found || now.After(rec.ResetTime) {
		rec = Record{Count: 0, ResetTime: now.Add(cfg.Window)}
	}

	// Denials never write to the store.
	if rec.Count >= cfg.Max {
		return Decision{Allowed: false, Remaining: 0, ResetTime: rec.ResetTime}
	}

	rec.Count++
	l.store.Set(key, rec)
	return Decision{Allowed: true, Remaining: cfg.Max - rec.Count, ResetTime: rec.ResetTime}
}

// Sweep removes records whose window closed more than the grace period ago.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.DeleteBefore(l.clock().Add(-sweepGrace))
}

// Start launches the periodic sweep. It is a no-op if already running.
// The sweep stops when ctx is cancelled or Stop is called.
func (l *Limiter) Start(ctx context.Context) {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.cancel != nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go l.sweepLoop(ctx, done)
}

// Stop cancels the sweep and waits for it to exit. Safe to call repeatedly.
func (l *Limiter) Stop() {
	l.lifecycle.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *Limiter) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.Sweep()
			if removed > 0 && observability.ServerLogger != nil {
				observability.ServerLogger.Debug("Swept expired rate limit records",
					zap.Int("removed", removed),
					zap.Int("remaining", l.store.Len()))
			}
		}
	}
}
