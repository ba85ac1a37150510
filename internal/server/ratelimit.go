package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloakd/cloakd/internal/config"
)

// ipRateLimiter keeps one token bucket per client IP. Buckets unused for
// an hour are discarded by a background sweep.
type ipRateLimiter struct {
	config  *config.RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(cfg *config.RateLimitConfig) *ipRateLimiter {
	return &ipRateLimiter{
		config:  cfg,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *ipRateLimiter) allow(clientIP string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	cl, ok := l.clients[clientIP]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSec), l.config.Burst),
		}
		l.clients[clientIP] = cl
	}
	cl.lastSeen = time.Now()
	l.mu.Unlock()

	return cl.limiter.Allow()
}

// startCleanup launches the background sweep that drops idle buckets.
func (l *ipRateLimiter) startCleanup() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			cutoff := time.Now().Add(-time.Hour)
			l.mu.Lock()
			for ip, cl := range l.clients {
				if cl.lastSeen.Before(cutoff) {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		}
	}()
}
