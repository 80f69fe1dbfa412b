package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CallerLimiter admits at most limit calls per key within any sliding window.
type CallerLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewCallerLimiter creates a sliding window limiter.
func NewCallerLimiter(limit int, window time.Duration) *CallerLimiter {
	return &CallerLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// NewCallerLimiterFromSpec builds a limiter from a spec such as "10/minute".
func NewCallerLimiterFromSpec(spec string) (*CallerLimiter, error) {
	limit, window, err := ParseRate(spec)
	if err != nil {
		return nil, err
	}
	return NewCallerLimiter(limit, window), nil
}

// WithClock replaces the time source. Intended for tests.
func (l *CallerLimiter) WithClock(now func() time.Time) *CallerLimiter {
	l.now = now
	return l
}

// Allow records a call for key if the window has room. When it does not,
// retryAfter is the time until the oldest call in the window ages out.
func (l *CallerLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.limit <= 0 {
		return true, 0
	}
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now, cutoff)

	hits := trimBefore(l.hits[key], cutoff)
	if len(hits) >= l.limit {
		l.hits[key] = hits
		return false, hits[0].Add(l.window).Sub(now)
	}
	l.hits[key] = append(hits, now)
	return true, 0
}

// Keys returns the number of callers currently tracked.
func (l *CallerLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// String renders the limiter in ParseRate form.
func (l *CallerLimiter) String() string {
	return fmt.Sprintf("%d/%s", l.limit, l.window)
}

// sweepLocked drops callers whose every hit has left the window, at most once
// per window.
func (l *CallerLimiter) sweepLocked(now, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

func trimBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

var rateUnits = map[string]time.Duration{
	"s":      time.Second,
	"sec":    time.Second,
	"second": time.Second,
	"m":      time.Minute,
	"min":    time.Minute,
	"minute": time.Minute,
	"h":      time.Hour,
	"hour":   time.Hour,
	"d":      24 * time.Hour,
	"day":    24 * time.Hour,
}

// ParseRate parses "<count>/<unit>" where unit is second, minute, hour or day
// (singular, plural or abbreviated).
func ParseRate(spec string) (int, time.Duration, error) {
	countPart, unitPart, ok := strings.Cut(strings.TrimSpace(spec), "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid rate %q: expected <count>/<unit>", spec)
	}

	count, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("invalid rate %q: count must be a positive integer", spec)
	}

	unit := strings.ToLower(strings.TrimSpace(unitPart))
	window, ok := rateUnits[unit]
	if !ok {
		window, ok = rateUnits[strings.TrimSuffix(unit, "s")]
	}
	if !ok {
		return 0, 0, fmt.Errorf("invalid rate %q: unknown unit %q", spec, unitPart)
	}
	return count, window, nil
}
