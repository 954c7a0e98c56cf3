// Package ratelimit holds the in-memory rate limiting used to slow
// credential stuffing on the account endpoints. State is per-process;
// a multi-instance deployment rate limits per instance.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by string. Safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

// New creates a Limiter allowing limit events per key per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

// Allow records an event for key and reports whether it stays within
// the limit. Expired buckets for other keys are swept opportunistically
// so the map does not grow without bound.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.buckets) > 1024 {
		for k, b := range l.buckets {
			if now.After(b.resetAt) {
				delete(l.buckets, k)
			}
		}
	}

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	b.count++
	return b.count <= l.limit
}

// Reset clears the window for key, used after a successful login so a
// legitimate user is not locked out by their own typos.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// ClientIP extracts the client IP from a request, honoring the proxy
// headers set by the load balancer before falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LoginLimiter combines a per-IP and a per-account window so neither a
// single source nor a single target can be hammered.
type LoginLimiter struct {
	byIP    *Limiter
	byEmail *Limiter
}

// NewLoginLimiter returns a LoginLimiter with the default windows:
// 10 attempts per IP per minute, 5 per account per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		byIP:    New(10, time.Minute),
		byEmail: New(5, 5*time.Minute),
	}
}

// Allow records an attempt and reports whether it may proceed.
func (ll *LoginLimiter) Allow(r *http.Request, email string) bool {
	if !ll.byIP.Allow(ClientIP(r)) {
		return false
	}
	if email == "" {
		return true
	}
	return ll.byEmail.Allow(strings.ToLower(strings.TrimSpace(email)))
}

// Succeeded clears the account window after a successful login.
func (ll *LoginLimiter) Succeeded(email string) {
	if email != "" {
		ll.byEmail.Reset(strings.ToLower(strings.TrimSpace(email)))
	}
}
