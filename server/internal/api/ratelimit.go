package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a client's bucket is kept after its last request.
const limiterIdle = 10 * time.Minute

// clientLimiter keeps one token bucket per remote host.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientBucket
	rps      float64
	burst    int
	now      func() time.Time
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*clientBucket),
		rps:      rps,
		burst:    burst,
		now:      time.Now,
	}
}

// allow reports whether a request from host may proceed. Idle buckets are
// pruned opportunistically.
func (l *clientLimiter) allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.limiters[host]
	if !ok {
		l.prune(now)
		b = &clientBucket{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.limiters[host] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// prune must be called with mu held.
func (l *clientLimiter) prune(now time.Time) {
	for host, b := range l.limiters {
		if now.Sub(b.lastSeen) > limiterIdle {
			delete(l.limiters, host)
		}
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
