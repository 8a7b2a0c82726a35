package httpapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"kasirbutik/backend/internal/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	maxJSONBody     = 1 << 20
)

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		reqLog := a.log.With(zap.String("request_id", requestID))
		r = r.WithContext(logger.WithContext(r.Context(), reqLog))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		rec.Header().Set(requestIDHeader, requestID)
		rec.Header().Set("X-Content-Type-Options", "nosniff")
		rec.Header().Set("X-Frame-Options", "DENY")
		rec.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		rec.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		rec.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		rec.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		rec.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		rec.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		rec.Header().Set("Vary", "Origin")

		defer func() {
			if p := recover(); p != nil {
				reqLog.Error("panic recovered", zap.Any("panic", p), zap.Stack("stack"))
				if !rec.wroteHeader {
					a.writeError(rec, r, http.StatusInternalServerError, fmt.Errorf("panic: %v", p))
				}
			}
			// ServeMux records the matched pattern on the request it was given.
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(startedAt)
			a.metrics.ObserveHTTP(r.Method, route, rec.status, elapsed)
			reqLog.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("latency", elapsed),
			)
		}()

		if r.Method == http.MethodOptions {
			rec.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.limiter.Allow(clientKey(r)) {
			reqLog.Warn("rate limit exceeded", zap.String("client", clientKey(r)))
			a.writeError(rec, r, http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.wroteHeader {
		return
	}
	s.status = status
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

// rateLimiter keeps one token bucket per client. Buckets idle for longer
// than idleTTL are swept on the next call after sweepEvery.
type rateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	limiterIdleTTL    = 3 * time.Minute
	limiterSweepEvery = time.Minute
)

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &rateLimiter{
		limit:     limit,
		burst:     burst,
		clients:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
	}
}

func (l *rateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterSweepEvery {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
