package ratelimit

import (
	"sync"
	"time"
)

// Default admission policy: 30 admitted messages per connection handle per
// rolling 10-second window.
const (
	DefaultLimit  = 30
	DefaultWindow = 10 * time.Second
)

// SlidingWindow implements per-handle rate limiting over a trailing window.
// ARCHITECTURAL DISCOVERY: A true sliding window (recorded timestamps) rather
// than a fixed bucket avoids boundary bursts of 2x the nominal limit.
//
// State is local to this process instance. A connection rescheduled across
// instances starts a fresh window and can exceed the nominal limit; that is
// the documented tradeoff of keeping admission off the store's hot path.
type SlidingWindow struct {
	mu      sync.Mutex
	windows map[string]*handleWindow
	limit   int
	window  time.Duration
}

// handleWindow tracks the admitted-message timestamps for a single handle.
type handleWindow struct {
	events   []time.Time
	lastSeen time.Time
}

// NewSlidingWindow creates a limiter with the given policy, falling back to
// the defaults when inputs are invalid.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{
		windows: make(map[string]*handleWindow),
		limit:   limit,
		window:  window,
	}
}

// Admit reports whether a message arriving at now is within budget and, if
// admitted, records now against the handle's window.
// FUNCTIONAL DISCOVERY: Entries older than the window are dropped before the
// count check, so admission always reflects exactly the trailing window.
func (l *SlidingWindow) Admit(handle string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	hw, exists := l.windows[handle]
	if !exists {
		hw = &handleWindow{events: make([]time.Time, 0, l.limit)}
		l.windows[handle] = hw
	}
	hw.lastSeen = now

	cut := now.Add(-l.window)
	kept := hw.events[:0]
	for _, t := range hw.events {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	hw.events = kept

	if len(hw.events) >= l.limit {
		return false
	}
	hw.events = append(hw.events, now)
	return true
}

// Release drops all state for a handle, called on disconnect.
func (l *SlidingWindow) Release(handle string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, handle)
}

// Cleanup removes windows idle for longer than maxIdle (call periodically).
// ARCHITECTURAL DISCOVERY: Prevent memory growth from handles that
// disconnected without an explicit Release.
func (l *SlidingWindow) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for handle, hw := range l.windows {
		if now.Sub(hw.lastSeen) > maxIdle {
			delete(l.windows, handle)
		}
	}
}

// Tracked returns the number of handles with live window state.
func (l *SlidingWindow) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
