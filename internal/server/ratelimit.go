// File: internal/server/ratelimit.go
// Description: Per-client token bucket limiting for the HTTP surface.

package server

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter hands out one token bucket per remote address. The service
// binds to loopback so the map stays tiny, but keying by client keeps a
// misbehaving tab from starving the rest.
type clientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	perSec  rate.Limit
	burst   int
}

func newClientLimiter(perSec float64, burst int) *clientLimiter {
	return &clientLimiter{
		buckets: make(map[string]*rate.Limiter),
		perSec:  rate.Limit(perSec),
		burst:   burst,
	}
}

func (cl *clientLimiter) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	l, ok := cl.buckets[key]
	if !ok {
		l = rate.NewLimiter(cl.perSec, cl.burst)
		cl.buckets[key] = l
	}
	return l
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.get(host).Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
