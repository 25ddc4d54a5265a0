package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/condor/pkg/logger"
	"github.com/wonny/condor/pkg/redis"
)

// TriggerLimiter limits on-demand screens per client
//
// With Redis enabled the sliding window is shared by every API instance;
// otherwise each client gets its own in-process token bucket.
type TriggerLimiter struct {
	redis     *redis.RateLimiter
	mu        sync.Mutex
	local     map[string]*rate.Limiter
	perMinute int
	logger    *logger.Logger
}

// NewTriggerLimiter creates a limiter allowing perMinute triggers
func NewTriggerLimiter(client *redis.Client, perMinute int, log *logger.Logger) *TriggerLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	l := &TriggerLimiter{
		perMinute: perMinute,
		logger:    log,
	}
	if client != nil && client.Enabled() {
		l.redis = redis.NewRateLimiter(client, "condor")
	} else {
		l.local = make(map[string]*rate.Limiter)
	}
	return l
}

func (l *TriggerLimiter) localLimiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.local[client]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.local[client] = lim
	}
	return lim
}

// Allow reports whether the request may trigger a screen
func (l *TriggerLimiter) Allow(r *http.Request) bool {
	if l.redis == nil {
		return l.localLimiter(clientIP(r)).Allow()
	}

	allowed, _, err := l.redis.Allow(r.Context(), redis.TriggerRateLimit(clientIP(r), l.perMinute))
	if err != nil {
		// Redis 장애 시 허용 (fail open)
		l.logger.WithError(err).Warn("Rate limiter unavailable")
		return true
	}
	return allowed
}

// Middleware rejects requests over the limit with 429
func (l *TriggerLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(60/l.perMinute+1))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "Too many screen requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
