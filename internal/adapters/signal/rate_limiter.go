package signal

import (
	"sync"

	"github.com/dkeye/Chatline/internal/core"
	"golang.org/x/time/rate"
)

// EventRateLimiter keeps one token bucket per connection.
type EventRateLimiter struct {
	mu       sync.Mutex
	limiters map[core.ConnectionID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewEventRateLimiter allows perSecond events with the given burst;
// perSecond <= 0 disables limiting.
func NewEventRateLimiter(perSecond float64, burst int) *EventRateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &EventRateLimiter{
		limiters: make(map[core.ConnectionID]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *EventRateLimiter) Allow(id core.ConnectionID) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[id]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[id] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

func (rl *EventRateLimiter) Forget(id core.ConnectionID) {
	rl.mu.Lock()
	delete(rl.limiters, id)
	rl.mu.Unlock()
}
