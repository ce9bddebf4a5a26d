package httpserver

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/mealweek/internal/config"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEvery   = 1000
	generateLimiterPath = "/v1/meal/plan/generate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per client key.
type limiterPool struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	calls   int
	now     func() time.Time
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		clients: make(map[string]*clientLimiter),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// reserve takes a token for key. A positive wait means the request is
// rejected and the client may retry after it.
func (p *limiterPool) reserve(key string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	c, ok := p.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.clients[key] = c
	}
	c.lastSeen = now

	p.calls++
	if p.calls%limiterSweepEvery == 0 {
		p.sweep(now)
	}

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Second
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return wait
	}
	return 0
}

// sweep drops clients idle for longer than limiterIdleTTL.
func (p *limiterPool) sweep(now time.Time) {
	for key, c := range p.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(p.clients, key)
		}
	}
}

// RateLimitMiddleware enforces per-client token buckets: a general one
// (RATE_LIMIT_RPS, off when 0) and a per-minute budget for plan
// generation (RATE_LIMIT_GENERATE_PER_MIN, off when 0).
func RateLimitMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	var general, generate *limiterPool

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = cfg.RateLimitRPS
		}
		general = newLimiterPool(rate.Limit(cfg.RateLimitRPS), burst)
	}
	if cfg.GenerateRatePerMinute > 0 {
		generate = newLimiterPool(rate.Every(time.Minute/time.Duration(cfg.GenerateRatePerMinute)), 1)
	}

	if general == nil && generate == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)

		if general != nil {
			if wait := general.reserve(client); wait > 0 {
				writeRateLimited(w, "rate_limited", "Too many requests", wait)
				return
			}
		}
		if generate != nil && r.Method == http.MethodPost && r.URL.Path == generateLimiterPath {
			if wait := generate.reserve(client); wait > 0 {
				writeRateLimited(w, "generate_rate_limited", "Plan generation limit reached, try again later", wait)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, code, message string, wait time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
