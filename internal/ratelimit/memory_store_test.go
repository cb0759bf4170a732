package ratelimit

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMemoryStore_AnonCeilingAndReset(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newMemoryStoreWithClock(Limits{Anon: 10, User: 100, Window: time.Minute}, clock.Now)
	key := AnonKey("203.0.113.9")

	for i := 0; i < 10; i++ {
		ok, err := s.Allow(key)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, err := s.Allow(key)
	require.NoError(t, err)
	assert.False(t, ok, "11th request must be rejected")

	// 別IPは別カウンタ
	ok, _ = s.Allow(AnonKey("203.0.113.10"))
	assert.True(t, ok)

	clock.Advance(time.Minute)
	ok, _ = s.Allow(key)
	assert.True(t, ok, "first request in new window")
}

func TestMemoryStore_UserCeiling(t *testing.T) {
	s := NewMemoryStore(Limits{Anon: 1, User: 3, Window: time.Hour})
	key := UserKey(42)

	for i := 0; i < 3; i++ {
		ok, _ := s.Allow(key)
		assert.True(t, ok)
	}
	ok, _ := s.Allow(key)
	assert.False(t, ok)
}

func TestMemoryStore_ConcurrentBurstCountsExactly(t *testing.T) {
	s := NewMemoryStore(Limits{Anon: 10, User: 100, Window: time.Hour})
	key := UserKey(1)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Allow(key); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
}

func TestMemoryStore_SweepsExpiredWindows(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newMemoryStoreWithClock(Limits{Anon: 1, User: 1, Window: time.Second}, clock.Now)

	_, _ = s.Allow(AnonKey("a"))
	_, _ = s.Allow(AnonKey("b"))
	require.Len(t, s.windows, 2)

	clock.Advance(2 * time.Second)
	_, _ = s.Allow(AnonKey("c"))
	assert.Len(t, s.windows, 1)
}

type failingStore struct{}

func (failingStore) Allow(string) (bool, error) { return false, errors.New("connection refused") }

func TestFailOpen(t *testing.T) {
	s := FailOpen{Store: failingStore{}, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ok, err := s.Allow(AnonKey("1.2.3.4"))
	assert.NoError(t, err)
	assert.True(t, ok)

	limited := FailOpen{Store: NewMemoryStore(Limits{Anon: 1, User: 1, Window: time.Hour}), Log: slog.Default()}
	ok, _ = limited.Allow(AnonKey("x"))
	assert.True(t, ok)
	ok, _ = limited.Allow(AnonKey("x"))
	assert.False(t, ok)
}
