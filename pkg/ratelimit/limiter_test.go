package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestTokenBucket_Allow(t *testing.T) {
	clock := newFakeClock()
	tb := NewTokenBucket(3, time.Second, clock.Now)

	for i := 0; i < 3; i++ {
		ok, _ := tb.Allow()
		assert.True(t, ok, "request %d", i+1)
	}
	ok, wait := tb.Allow()
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	clock.Advance(2 * time.Second)
	ok, _ = tb.Allow()
	assert.True(t, ok)
	ok, _ = tb.Allow()
	assert.True(t, ok)
	ok, _ = tb.Allow()
	assert.False(t, ok)

	clock.Advance(time.Hour)
	assert.Equal(t, 3.0, tb.Tokens())
}

func TestTokenBucket_Reset(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute, newFakeClock().Now)
	ok, _ := tb.Allow()
	require.True(t, ok)
	ok, _ = tb.Allow()
	require.False(t, ok)

	tb.Reset()
	ok, _ = tb.Allow()
	assert.True(t, ok)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(2, time.Minute, WithClock(newFakeClock().Now))

	for i := 0; i < 2; i++ {
		ok, _ := l.Allow("a@example.com")
		require.True(t, ok)
	}
	ok, _ := l.Allow("a@example.com")
	assert.False(t, ok)

	ok, _ = l.Allow("b@example.com")
	assert.True(t, ok)

	l.Reset("a@example.com")
	ok, _ = l.Allow("a@example.com")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Stats().ActiveBuckets)
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	l := New(1, time.Minute, WithTTL(time.Hour), WithClock(clock.Now))

	l.Allow("old")
	clock.Advance(30 * time.Minute)
	l.Allow("new")
	clock.Advance(45 * time.Minute)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Stats().ActiveBuckets)
	assert.Equal(t, 0, New(1, time.Minute).Sweep())
}

func TestLimiter_RunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New(1, time.Minute, WithTTL(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, time.Minute, WithClock(newFakeClock().Now))
	h := Middleware(l, "ip", KeyByIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"message":"Too many attempts. Please try again later."}`, rec.Body.String())

	other := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestKeyByIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.9:1", "5.6.7.8"},
		{"remote", nil, "10.0.0.9:1234", "10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, KeyByIP(r))
		})
	}
}

func TestKeyBySubject(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", KeyBySubject(r))

	ja := jwtauth.New("HS256", []byte("secret"), nil)
	token, _, err := ja.Encode(map[string]interface{}{"sub": "user-1"})
	require.NoError(t, err)
	ctx := jwtauth.NewContext(r.Context(), token, nil)
	assert.Equal(t, "user-1", KeyBySubject(r.WithContext(ctx)))
}
