package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// ClientRateLimiter implements sliding window rate limiting for one client
type ClientRateLimiter struct {
	mu                 sync.Mutex
	requestsPerMinute  int
	maxConcurrent      int
	requests           []time.Time
	concurrentRequests int
	now                func() time.Time
}

// NewClientRateLimiter creates a rate limiter. A zero limit is not enforced.
func NewClientRateLimiter(requestsPerMinute, maxConcurrent int) *ClientRateLimiter {
	return &ClientRateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		now:               time.Now,
	}
}

// Acquire admits a request if both limits allow it. The returned release
// must be called when the request ends.
func (r *ClientRateLimiter) Acquire() (release func(), reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxConcurrent > 0 && r.concurrentRequests >= r.maxConcurrent {
		return nil, "too many concurrent requests"
	}

	now := r.now()
	r.pruneLocked(now)
	if r.requestsPerMinute > 0 && len(r.requests) >= r.requestsPerMinute {
		return nil, "rate limit exceeded"
	}

	r.requests = append(r.requests, now)
	r.concurrentRequests++

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.concurrentRequests > 0 {
				r.concurrentRequests--
			}
			r.mu.Unlock()
		})
	}, ""
}

// GetStats returns the requests in the current window and the requests in flight
func (r *ClientRateLimiter) GetStats() (requestCount, concurrentCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.now())
	return len(r.requests), r.concurrentRequests
}

func (r *ClientRateLimiter) idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.now())
	return len(r.requests) == 0 && r.concurrentRequests == 0
}

// pruneLocked drops requests older than one minute
func (r *ClientRateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(r.requests) && !r.requests[i].After(cutoff) {
		i++
	}
	r.requests = r.requests[i:]
}

// RateLimiter holds one ClientRateLimiter per remote address
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	maxConcurrent     int
	clients           map[string]*ClientRateLimiter
}

// NewRateLimiter creates a per-client rate limiter
func NewRateLimiter(requestsPerMinute, maxConcurrent int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		clients:           make(map[string]*ClientRateLimiter),
	}
}

func (l *RateLimiter) client(key string) *ClientRateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		// Drop idle clients so the map does not grow with every address seen.
		for k, other := range l.clients {
			if other.idle() {
				delete(l.clients, k)
			}
		}
		c = NewClientRateLimiter(l.requestsPerMinute, l.maxConcurrent)
		l.clients[key] = c
	}
	return c
}

// clientKey returns the host part of the remote address
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Middleware rejects requests over the limit with 429. It keys clients by
// remote host, so it should run after middleware.RealIP.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		release, reason := l.client(clientKey(r)).Acquire()
		if release == nil {
			writeError(w, http.StatusTooManyRequests, reason, "RateLimited")
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}
