package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows Requests per Window for each client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Message  string
}

// DefaultRateLimitConfig is the general API limit.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Requests: 100, Window: 15 * time.Minute, Message: "too many requests, try again later"}
}

// AuthRateLimitConfig is the stricter limit on authentication endpoints.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Requests: 5, Window: 15 * time.Minute, Message: "too many login attempts, try again later"}
}

type visitor struct {
	limiter     *rate.Limiter
	windowStart time.Time
	lastSeen    time.Time
}

// decision is the outcome of one request against a client's window.
type decision struct {
	allowed   bool
	remaining int
	reset     time.Duration
}

// limiterStore holds one fixed window per key. Each window starts with a full
// limiter whose refill period equals the window, so no token comes back
// before the window closes and at most Requests pass per window. Idle
// entries are swept once per window.
type limiterStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(cfg.Window),
		burst:     cfg.Requests,
		window:    cfg.Window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *limiterStore) take(key string) decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.window {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.window {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok || now.Sub(v.windowStart) >= s.window {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst), windowStart: now}
		s.visitors[key] = v
	}
	v.lastSeen = now

	d := decision{
		allowed: v.limiter.AllowN(now, 1),
		reset:   v.windowStart.Add(s.window).Sub(now),
	}
	if remaining := int(v.limiter.TokensAt(now)); remaining > 0 {
		d.remaining = remaining
	}
	return d
}

// RateLimit rejects clients that exceed Requests within a fixed Window with
// 429. Retry-After reports the seconds until the client's window resets.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		cfg = DefaultRateLimitConfig()
	}
	return rateLimit(cfg, newLimiterStore(cfg))
}

func rateLimit(cfg RateLimitConfig, store *limiterStore) echo.MiddlewareFunc {
	if cfg.Message == "" {
		cfg.Message = "rate limit exceeded"
	}
	limit := strconv.Itoa(cfg.Requests)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := store.take(c.RealIP())
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(seconds(d.reset)))

			if !d.allowed {
				h.Set("Retry-After", strconv.Itoa(seconds(d.reset)))
				return echo.NewHTTPError(http.StatusTooManyRequests, cfg.Message)
			}
			return next(c)
		}
	}
}

func seconds(d time.Duration) int {
	n := int(math.Ceil(d.Seconds()))
	if n < 1 {
		n = 1
	}
	return n
}
