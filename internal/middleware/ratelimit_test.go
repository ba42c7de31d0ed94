package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, limit int, window time.Duration, keys KeyFunc) (*RateLimiter, *fakeClock) {
	t.Helper()
	rl := NewRateLimiter(limit, window, keys)
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiterReserve(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute, nil)

	for i := 0; i < 3; i++ {
		ok, _ := rl.reserve([]string{"ip:a"})
		require.True(t, ok, "request %d should be allowed", i+1)
	}
	ok, wait := rl.reserve([]string{"ip:a"})
	assert.False(t, ok, "4th request should be rate-limited")
	assert.Equal(t, time.Minute, wait)

	ok, _ = rl.reserve([]string{"ip:b"})
	assert.True(t, ok, "different bucket should be allowed")
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl, clock := newTestLimiter(t, 2, time.Minute, nil)

	rl.reserve([]string{"k"})
	clock.advance(20 * time.Second)
	rl.reserve([]string{"k"})

	ok, wait := rl.reserve([]string{"k"})
	require.False(t, ok)
	assert.Equal(t, 40*time.Second, wait, "the first request leaves the window in 40s")

	clock.advance(41 * time.Second)
	ok, _ = rl.reserve([]string{"k"})
	assert.True(t, ok)
}

func TestRateLimiterRejectionConsumesNothing(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute, nil)

	ok, _ := rl.reserve([]string{"ip:a", "account:ana@example.com"})
	require.True(t, ok)

	// The account bucket is full, so the fresh IP bucket must stay empty.
	ok, _ = rl.reserve([]string{"ip:b", "account:ana@example.com"})
	require.False(t, ok)
	ok, _ = rl.reserve([]string{"ip:b"})
	assert.True(t, ok)
}

func TestRateLimiterPrune(t *testing.T) {
	rl, clock := newTestLimiter(t, 10, time.Minute, nil)

	rl.reserve([]string{"old"})
	clock.advance(2 * time.Minute)
	rl.reserve([]string{"fresh"})
	rl.prune()

	rl.mu.Lock()
	_, oldExists := rl.buckets["old"]
	_, freshExists := rl.buckets["fresh"]
	rl.mu.Unlock()

	assert.False(t, oldExists, "idle bucket should be removed")
	assert.True(t, freshExists, "bucket with a recent request should stay")
}

func TestRateLimiterStopTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Second, nil)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func loginRequest(remoteAddr, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	return req
}

func TestLoginKeys(t *testing.T) {
	req := loginRequest("192.0.2.1:1000", `{"email":" Ana@Example.com ","password":"x"}`)
	assert.Equal(t, []string{"ip:192.0.2.1", "account:ana@example.com"}, LoginKeys(req))

	// The handler still sees the whole body.
	var buf bytes.Buffer
	_, err := buf.ReadFrom(req.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"password":"x"`)

	assert.Equal(t, []string{"ip:192.0.2.1"}, LoginKeys(loginRequest("192.0.2.1:1000", `not json`)))
	assert.Equal(t, []string{"ip:192.0.2.1"}, LoginKeys(loginRequest("192.0.2.1:1000", `{}`)))
}

func TestLoginLimiterThrottlesAccountAcrossAddresses(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute, LoginKeys)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	send := func(addr, email string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, loginRequest(addr, `{"email":"`+email+`","password":"guess"}`))
		return rr
	}

	require.Equal(t, http.StatusOK, send("198.51.100.1:1", "ana@example.com").Code)
	require.Equal(t, http.StatusOK, send("198.51.100.2:1", "ANA@example.com").Code)

	rr := send("198.51.100.3:1", "ana@example.com")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code, "third address, same account")
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"too many requests"}`, rr.Body.String())

	assert.Equal(t, http.StatusOK, send("198.51.100.3:1", "bob@example.com").Code, "other accounts are unaffected")
}

func TestRateLimiterMiddlewareByIP(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, 30*time.Second, nil)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, loginRequest("192.168.1.1:12345", `{}`))
		return rr
	}
	require.Equal(t, http.StatusOK, req().Code)
	rr := req()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"x-forwarded-for single", "10.0.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-forwarded-for multiple", "10.0.0.1, 172.16.0.1, 192.168.1.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-real-ip", "", "10.0.0.2", "192.168.1.1:1234", "10.0.0.2"},
		{"remote addr only", "", "", "192.168.1.1:1234", "192.168.1.1"},
		{"remote addr no port", "", "", "192.168.1.1", "192.168.1.1"},
		{"ipv6 remote addr", "", "", "[2001:db8::1]:443", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
