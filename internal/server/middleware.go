// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/juju/ratelimit"
	"github.com/sirupsen/logrus"
)

// requestLogger logs one entry per request with its request id.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"remote":     r.RemoteAddr,
			})
			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
		})
	}
}

// rateLimiter keeps one token bucket per client host.
type rateLimiter struct {
	rate     float64
	capacity int64

	mu      sync.RWMutex
	clients map[string]*ratelimit.Bucket
}

func newRateLimiter(rate float64, capacity int64) *rateLimiter {
	return &rateLimiter{
		rate:     rate,
		capacity: capacity,
		clients:  make(map[string]*ratelimit.Bucket),
	}
}

func (rl *rateLimiter) bucket(client string) *ratelimit.Bucket {
	rl.mu.RLock()
	b, ok := rl.clients[client]
	rl.mu.RUnlock()
	if ok {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok = rl.clients[client]; !ok {
		b = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
		rl.clients[client] = b
		rateLimiterBuckets.Set(float64(len(rl.clients)))
	}
	return b
}

// cleanup drops buckets that have refilled completely.
func (rl *rateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for client, b := range rl.clients {
		if b.Available() == b.Capacity() {
			delete(rl.clients, client)
			removed++
		}
	}
	rateLimiterBuckets.Set(float64(len(rl.clients)))
	return removed
}

// tokenCost is the number of tokens a request takes. Index, health, and
// metrics routes are free.
func tokenCost(r *http.Request) int64 {
	switch r.URL.Path {
	case "/", "/health", "/metrics":
		return 0
	}
	return 1
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := rl.bucket(clientHost(r))
		cost := tokenCost(r)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.capacity, 10))
		w.Header().Set("X-RateLimit-Rate", strconv.FormatFloat(rl.rate, 'f', -1, 64))

		if b.TakeAvailable(cost) < cost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(b.Available(), 10))
		next.ServeHTTP(w, r)
	})
}
