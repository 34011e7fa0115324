package limiters

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	"golang.org/x/time/rate"
)

// Local is an in-process [codes.Throttle] keyed by identifier. It is meant for
// single-instance deployments and tests that run without Redis.
type Local struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time

	// idle entries are swept at most once per idle period
	lastSweep time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocal allows burst sends per identifier, refilled at one token per interval.
func NewLocal(interval time.Duration, burst int) *Local {
	if burst < 1 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Local{
		limiters: make(map[string]*localEntry),
		limit:    rate.Every(interval),
		burst:    burst,
		idle:     interval * time.Duration(burst) * 2,
		now:      time.Now,
	}
}

func (l *Local) Allow(_ context.Context, req codes.Request) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	key := string(req.Purpose) + ":" + req.Identifier
	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	if now.Sub(l.lastSweep) >= l.idle {
		l.evictIdle(now)
		l.lastSweep = now
	}

	r := entry.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &codes.ThrottleError{Reason: ReasonLocalRate, RetryAfter: delay}
	}
	return nil
}

// Len returns the number of tracked identifiers.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Local) evictIdle(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
}
