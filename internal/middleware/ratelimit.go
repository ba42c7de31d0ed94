// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxPeekBytes bounds how much of a login body LoginKeys reads.
const maxPeekBytes = 64 << 10

// KeyFunc names the buckets a request is counted against. A request is
// rejected when any of its buckets is full.
type KeyFunc func(r *http.Request) []string

// ByClientIP counts requests per client address.
func ByClientIP(r *http.Request) []string {
	return []string{"ip:" + clientIP(r)}
}

// LoginKeys counts login attempts per client address and per account, so
// guessing one account's password from many addresses is throttled too.
// The request body is restored for the handler.
func LoginKeys(r *http.Request) []string {
	keys := ByClientIP(r)
	if r.Body == nil {
		return keys
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return keys
	}

	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) != nil {
		return keys
	}
	if email := strings.ToLower(strings.TrimSpace(creds.Email)); email != "" {
		keys = append(keys, "account:"+email)
	}
	return keys
}

// RateLimiter is a sliding-window limiter over request buckets.
type RateLimiter struct {
	limit  int
	window time.Duration
	keys   KeyFunc
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time

	stopCh chan struct{}
	once   sync.Once
}

// NewRateLimiter allows limit requests per window in every bucket keys
// returns. A nil keys counts by client IP. A background goroutine prunes
// idle buckets until Stop.
func NewRateLimiter(limit int, window time.Duration, keys KeyFunc) *RateLimiter {
	if keys == nil {
		keys = ByClientIP
	}
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		keys:    keys,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.prune()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background pruning goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// reserve records one request in every bucket, or none of them when one is
// full. It returns how long until the fullest bucket frees a slot.
func (rl *RateLimiter) reserve(keys []string) (bool, time.Duration) {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	var wait time.Duration
	for _, k := range keys {
		hits := recent(rl.buckets[k], cutoff)
		rl.buckets[k] = hits
		if len(hits) >= rl.limit {
			// hits is in arrival order; the slot frees when the oldest
			// request that still fills the window leaves it.
			if w := hits[len(hits)-rl.limit].Add(rl.window).Sub(now); w > wait {
				wait = w
			}
		}
	}
	if wait > 0 {
		return false, wait
	}

	for _, k := range keys {
		rl.buckets[k] = append(rl.buckets[k], now)
	}
	return true, 0
}

// recent drops timestamps at or before cutoff.
func recent(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// prune forgets buckets with no request inside the window.
func (rl *RateLimiter) prune() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, hits := range rl.buckets {
		if len(recent(hits, cutoff)) == 0 {
			delete(rl.buckets, k)
		}
	}
}

// Middleware rejects requests over the limit with a JSON 429 whose
// Retry-After says when the next attempt will be accepted.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.reserve(rl.keys(r))
		if !ok {
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client's IP address, checking X-Forwarded-For
// and X-Real-IP headers for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
