package inmemory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// repo keeps a token bucket per key. Buckets idle for a full window are
// refilled, so they are dropped and recreated on the next request.
type repo struct {
	mu        sync.Mutex
	entries   map[string]*entry
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRepo returns a token bucket limiter per key refilling limit tokens per
// window with a burst of limit.
func NewRepo(limit int, window time.Duration) *repo {
	return &repo{
		entries: make(map[string]*entry),
		limit:   rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (r *repo) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < r.window {
		return
	}
	r.lastSweep = now

	for key, e := range r.entries {
		if now.Sub(e.lastSeen) >= r.window {
			delete(r.entries, key)
		}
	}
}

func (r *repo) Allow(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	e, ok := r.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1), nil
}
