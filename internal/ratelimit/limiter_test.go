package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock) (*Limiter, *MemoryStore) {
	store := NewMemoryStore()
	return New(store, WithClock(clock.Now)), store
}

func TestCheckAllowsWithinLimit(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	d := limiter.Check("user1", CategoryVote)
	require.True(t, d.Allowed)
	require.Equal(t, 29, d.Remaining)
	require.Equal(t, clock.Now().Add(time.Minute), d.ResetTime)
}

func TestCheckVoteCountdownThenDeny(t *testing.T) {
	clock := newFakeClock()
	limiter, store := newTestLimiter(clock)

	var last Decision
	for i := 0; i < 30; i++ {
		last = limiter.Check("user2", CategoryVote)
		require.True(t, last.Allowed, "call %d", i+1)
		require.Equal(t, 29-i, last.Remaining, "call %d", i+1)
	}

	denied := limiter.Check("user2", CategoryVote)
	require.False(t, denied.Allowed)
	require.Equal(t, 0, denied.Remaining)
	require.Equal(t, last.ResetTime, denied.ResetTime)

	// Denied calls do not increment.
	for i := 0; i < 5; i++ {
		limiter.Check("user2", CategoryVote)
	}
	rec, ok := store.Get("vote:user2")
	require.True(t, ok)
	require.Equal(t, 30, rec.Count)
}

// countingStore records how often the limiter writes.
type countingStore struct {
	*MemoryStore
	sets int
}

func (s *countingStore) Set(key string, rec Record) {
	s.sets++
	s.MemoryStore.Set(key, rec)
}

func TestCheckDenialDoesNotWrite(t *testing.T) {
	clock := newFakeClock()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	limiter := New(store, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Check("203.0.113.9", CategorySubmit).Allowed)
	}
	require.Equal(t, 3, store.sets)
	before, ok := store.Get("submit:203.0.113.9")
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		require.False(t, limiter.Check("203.0.113.9", CategorySubmit).Allowed)
	}
	assert.Equal(t, 3, store.sets)
	after, _ := store.Get("submit:203.0.113.9")
	assert.Equal(t, before, after)
}

func TestCheckResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter, store := newTestLimiter(clock)

	for i := 0; i < 30; i++ {
		limiter.Check("user3", CategoryVote)
	}
	require.False(t, limiter.Check("user3", CategoryVote).Allowed)

	clock.Advance(61 * time.Second)

	d := limiter.Check("user3", CategoryVote)
	require.True(t, d.Allowed)
	require.Equal(t, 29, d.Remaining)
	require.Equal(t, clock.Now().Add(time.Minute), d.ResetTime)

	rec, _ := store.Get("vote:user3")
	require.Equal(t, 1, rec.Count)
}

func TestCheckDoesNotResetExactlyAtResetTime(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	for i := 0; i < 3; i++ {
		limiter.Check("edge", CategorySubmit)
	}

	clock.Advance(time.Minute)
	require.False(t, limiter.Check("edge", CategorySubmit).Allowed)

	clock.Advance(time.Millisecond)
	require.True(t, limiter.Check("edge", CategorySubmit).Allowed)
}

func TestCheckUnknownCategoryFailsOpen(t *testing.T) {
	clock := newFakeClock()
	limiter, store := newTestLimiter(clock)

	for i := 0; i < 1000; i++ {
		d := limiter.Check("user4", Category("unknown"))
		require.True(t, d.Allowed)
		require.Equal(t, Unlimited, d.Remaining)
		require.True(t, d.ResetTime.IsZero())
	}
	require.Equal(t, 0, store.Len())
}

func TestCheckSubmitAndEmailLimits(t *testing.T) {
	tests := []struct {
		category Category
		max      int
	}{
		{CategorySubmit, 3},
		{CategoryEmail, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			limiter, _ := newTestLimiter(newFakeClock())
			for i := 0; i < tt.max; i++ {
				require.True(t, limiter.Check("user", tt.category).Allowed)
			}
			require.False(t, limiter.Check("user", tt.category).Allowed)
		})
	}
}

func TestCheckIsolatesKeys(t *testing.T) {
	limiter, _ := newTestLimiter(newFakeClock())

	limiter.Check("userA", CategoryVote)
	limiter.Check("userA", CategoryVote)

	resultA := limiter.Check("userA", CategoryVote)
	resultB := limiter.Check("userB", CategoryVote)

	assert.Equal(t, 27, resultA.Remaining)
	assert.Equal(t, 29, resultB.Remaining)

	// Same identifier, different category.
	resultSubmit := limiter.Check("userA", CategorySubmit)
	assert.Equal(t, 2, resultSubmit.Remaining)
}

func TestCheckWindowsArePerKey(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	first := limiter.Check("early", CategoryVote)
	clock.Advance(30 * time.Second)
	second := limiter.Check("late", CategoryVote)

	require.Equal(t, 30*time.Second, second.ResetTime.Sub(first.ResetTime))
}

func TestCheckConcurrentSameKeyNeverExceedsMax(t *testing.T) {
	limiter, store := newTestLimiter(newFakeClock())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check("shared", CategoryVote).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 30, allowed)
	rec, _ := store.Get("vote:shared")
	require.Equal(t, 30, rec.Count)
}

func TestSweepRemovesOnlyRecordsPastGrace(t *testing.T) {
	clock := newFakeClock()
	limiter, store := newTestLimiter(clock)

	limiter.Check("old", CategoryVote)
	clock.Advance(90 * time.Second)
	limiter.Check("fresh", CategoryVote)

	// "old" closed 30s ago: still within grace.
	require.Equal(t, 0, limiter.Sweep())
	require.Equal(t, 2, store.Len())

	clock.Advance(31 * time.Second)
	require.Equal(t, 1, limiter.Sweep())

	_, ok := store.Get("vote:old")
	require.False(t, ok)
	_, ok = store.Get("vote:fresh")
	require.True(t, ok)
}

func TestSweptKeyIsTreatedAsNew(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	for i := 0; i < 3; i++ {
		limiter.Check("gone", CategorySubmit)
	}
	clock.Advance(3 * time.Minute)
	limiter.Sweep()

	d := limiter.Check("gone", CategorySubmit)
	require.True(t, d.Allowed)
	require.Equal(t, 2, d.Remaining)
}

func TestStartStopRunsBackgroundSweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	limiter := New(store, WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))

	limiter.Check("idle", CategoryVote)
	clock.Advance(5 * time.Minute)

	limiter.Start(context.Background())
	defer limiter.Stop()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	limiter := New(nil, WithSweepInterval(time.Hour))

	limiter.Stop()
	limiter.Start(context.Background())
	limiter.Start(context.Background())
	limiter.Stop()
	limiter.Stop()
}

func TestStartHonorsContextCancellation(t *testing.T) {
	limiter := New(nil, WithSweepInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	limiter.Start(ctx)
	cancel()

	// Stop must still return once the loop has exited on its own.
	done := make(chan struct{})
	go func() {
		limiter.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

func TestCategoriesTable(t *testing.T) {
	infos := Categories()
	require.Len(t, infos, 3)
	require.Equal(t, CategoryInfo{Category: CategoryVote, Max: 30, Window: time.Minute}, infos[0])
	require.Equal(t, CategoryInfo{Category: CategorySubmit, Max: 3, Window: time.Minute}, infos[1])
	require.Equal(t, CategoryInfo{Category: CategoryEmail, Max: 5, Window: time.Minute}, infos[2])
}
