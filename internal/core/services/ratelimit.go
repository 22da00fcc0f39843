package services

import (
	"sync"
	"time"
)

// RateWindow is the length of the rate limiter's window
const RateWindow = time.Minute

// RateLimiter counts requests per user in a one-minute window.
// The map lock only guards membership; each user's counter has its own lock.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	window  time.Duration
	now     func() time.Time
}

type rateWindow struct {
	mu      sync.Mutex
	started time.Time
	count   int
	dead    bool // removed by Sweep
}

// NewRateLimiter creates an empty limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		window:  RateWindow,
		now:     time.Now,
	}
}

// Allow counts a request for userID and reports whether it stays within
// limit requests per window. Every call is counted, allowed or not.
// A limit <= 0 disables limiting.
func (l *RateLimiter) Allow(userID string, limit int) bool {
	w := l.acquire(userID)
	defer w.mu.Unlock()

	now := l.now()
	if now.Sub(w.started) >= l.window {
		w.started = now
		w.count = 0
	}
	w.count++
	return limit <= 0 || w.count <= limit
}

// Count returns the requests counted for userID in the current window
func (l *RateLimiter) Count(userID string) int {
	l.mu.Lock()
	w, ok := l.windows[userID]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if l.now().Sub(w.started) >= l.window {
		return 0
	}
	return w.count
}

// Sweep drops windows that expired before now and returns how many were dropped
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for id, w := range l.windows {
		w.mu.Lock()
		expired := now.Sub(w.started) >= l.window
		if expired {
			w.dead = true
		}
		w.mu.Unlock()
		if expired {
			delete(l.windows, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked users
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// acquire returns userID's live window with its lock held. A window fetched
// just before Sweep removed it is skipped.
func (l *RateLimiter) acquire(userID string) *rateWindow {
	for {
		w := l.get(userID)
		w.mu.Lock()
		if !w.dead {
			return w
		}
		w.mu.Unlock()
	}
}

func (l *RateLimiter) get(userID string) *rateWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[userID]
	if !ok {
		w = &rateWindow{started: l.now()}
		l.windows[userID] = w
	}
	return w
}
