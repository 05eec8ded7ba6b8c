package httpapi

import (
	"sync"
	"time"
)

// sendLimiter caps outgoing emails per key in a sliding window.
type sendLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
}

func newSendLimiter(window time.Duration, max int) *sendLimiter {
	return &sendLimiter{
		window:  window,
		max:     max,
		entries: make(map[string][]time.Time),
	}
}

func (l *sendLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.entries[key][:0]
	for _, t := range l.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	if len(kept) == 0 && len(l.entries) > 10000 {
		l.prune(cutoff)
	}
	l.entries[key] = append(kept, now)
	return true
}

func (l *sendLimiter) prune(cutoff time.Time) {
	for k, ts := range l.entries {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.entries, k)
		}
	}
}
