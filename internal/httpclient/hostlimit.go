package httpclient

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// PerHostLimiter is a process-global per-host request limiter. All fetches
// in the process share the limiter for a given host, so several sources
// pointed at the same upstream cannot hammer it at once.
type PerHostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// HostLimiter is the shared limiter. Default: 4 requests/second with a
// burst of 4 per host across the entire process.
var HostLimiter = NewPerHostLimiter(4, 4)

func NewPerHostLimiter(perSecond float64, burst int) *PerHostLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &PerHostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Wait blocks until the host of rawURL has a slot, or ctx is done.
func (p *PerHostLimiter) Wait(ctx context.Context, rawURL string) error {
	return p.limiterFor(rawURL).Wait(ctx)
}

func (p *PerHostLimiter) limiterFor(rawURL string) *rate.Limiter {
	// Normalise: keep scheme+host only.
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		key = u.Scheme + "://" + u.Host
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[key] = l
	}
	return l
}
