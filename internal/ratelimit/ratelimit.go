// Package ratelimit throttles clients by address.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a request from key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// SlidingWindow keeps the timestamps of recent requests per key and admits a
// request while fewer than max fall inside the window. State is per process.
type SlidingWindow struct {
	mu     sync.Mutex
	log    map[string][]time.Time
	window time.Duration
	max    int
	now    func() time.Time
}

func NewSlidingWindow(window time.Duration, max int) *SlidingWindow {
	return &SlidingWindow{
		log:    make(map[string][]time.Time),
		window: window,
		max:    max,
		now:    time.Now,
	}
}

func (s *SlidingWindow) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	q := prune(s.log[key], now, s.window)
	if len(q) >= s.max {
		s.log[key] = q
		return false
	}
	s.log[key] = append(q, now)
	return true
}

// Forget drops keys whose newest entry is older than the window.
func (s *SlidingWindow) Forget() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, q := range s.log {
		q = prune(q, now, s.window)
		if len(q) == 0 {
			delete(s.log, key)
			removed++
			continue
		}
		s.log[key] = q
	}
	return removed
}

func prune(q []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(q) && now.Sub(q[i]) > window {
		i++
	}
	if i == 0 {
		return q
	}
	return append(q[:0], q[i:]...)
}
