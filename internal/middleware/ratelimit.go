package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/metrics"
)

// RateLimiter is a per-client token bucket. Clients are identified by the
// authenticated subject when present, otherwise by remote IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*visitor
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	swept   time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client, refilled evenly, with
// bursts up to perMinute. perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*visitor),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
	if perMinute > 0 {
		rl.limit = rate.Every(time.Minute / time.Duration(perMinute))
		rl.burst = perMinute
	}
	return rl
}

func (rl *RateLimiter) enabled() bool {
	return rl.burst > 0
}

// Allow reports whether the client may make a request now. When it may not,
// the returned duration is how long until a token is available.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	if !rl.enabled() {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = v
	}
	v.lastSeen = now

	res := v.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops idle clients at most once per idle TTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.swept) < rl.idleTTL {
		return
	}
	for key, v := range rl.clients {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
		}
	}
	rl.swept = now
}

// Handler rejects over-limit requests with 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		ok, wait := rl.Allow(key)
		if !ok {
			metrics.RecordRateLimited(r.Context(), r.URL.Path)
			slog.WarnContext(r.Context(), "Rate limit exceeded", "client", key, "path", r.URL.Path)

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, errors.NewRateLimitError(
				"Too many requests",
				"RATE_LIMITED",
				"Wait before sending another recommendation request.",
			))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if id, ok := GetClientID(r.Context()); ok {
		return "sub:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
