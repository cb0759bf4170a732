package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// MemoryStoreは固定ウィンドウのカウンタ。1プロセス内で有効。
// echoのmiddleware.RateLimiterStoreを満たす。
type MemoryStore struct {
	limits Limits
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

func NewMemoryStore(limits Limits) *MemoryStore {
	return newMemoryStoreWithClock(limits, time.Now)
}

func newMemoryStoreWithClock(limits Limits, now func() time.Time) *MemoryStore {
	return &MemoryStore{
		limits:    limits,
		now:       now,
		windows:   make(map[string]*window),
		lastSweep: now(),
	}
}

// 上限以内なら数えてtrue。拒否したリクエストは数えない
func (s *MemoryStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	w, ok := s.windows[identifier]
	if !ok || now.Sub(w.start) >= s.limits.Window {
		w = &window{start: now}
		s.windows[identifier] = w
	}
	if w.count >= s.limits.limitFor(identifier) {
		return false, nil
	}
	w.count++
	return true, nil
}

// 期限切れのウィンドウを捨てる（ウィンドウ1回につき1度だけ）
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.limits.Window {
		return
	}
	for k, w := range s.windows {
		if now.Sub(w.start) >= s.limits.Window {
			delete(s.windows, k)
		}
	}
	s.lastSweep = now
}
