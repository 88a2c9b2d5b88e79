package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
)

// KeyFunc picks the bucket for a request. An empty key is not limited.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests with 429 once their key's bucket is empty.
func Middleware(l *Limiter, scope string, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			if ok, wait := l.Allow(k); !ok {
				slog.Warn("Rate limit exceeded", "scope", scope, "key", k, "method", r.Method, "path", r.URL.Path)
				TooManyRequests(w, r, wait)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.capacity))
			next.ServeHTTP(w, r)
		})
	}
}

// TooManyRequests writes the 429 body the form client shows as its error line.
func TooManyRequests(w http.ResponseWriter, r *http.Request, wait time.Duration) {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, map[string]string{
		"message": "Too many attempts. Please try again later.",
	})
}

// KeyByIP keys on the first X-Forwarded-For address, X-Real-IP, or RemoteAddr.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// KeyBySubject keys on the "sub" claim of a verified JWT in the request context.
func KeyBySubject(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
