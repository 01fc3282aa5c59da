package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"socialposts/internal/config"
	handlersPkg "socialposts/internal/handler"
)

// Limiter decides whether a client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IPRateLimiter keeps one token bucket per client in memory.
type IPRateLimiter struct {
	ips  sync.Map
	mu   sync.Mutex
	r    rate.Limit
	b    int
	idle time.Duration
	stop chan struct{}
	once sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

func (c *client) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// NewIPRateLimiter allows requests per window with a burst of the same size.
func NewIPRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	i := &IPRateLimiter{
		r:    rate.Limit(float64(requests) / window.Seconds()),
		b:    requests,
		idle: max(window, 3*time.Minute),
		stop: make(chan struct{}),
	}

	go i.cleanupLoop(time.Minute)

	return i
}

func (i *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return i.getLimiter(key).Allow(), nil
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	if v, ok := i.ips.Load(ip); ok {
		c := v.(*client)
		c.touch()
		return c.limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	// Double check
	if v, ok := i.ips.Load(ip); ok {
		c := v.(*client)
		c.touch()
		return c.limiter
	}

	c := &client{limiter: rate.NewLimiter(i.r, i.b)}
	c.touch()
	i.ips.Store(ip, c)

	return c.limiter
}

func (i *IPRateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case <-ticker.C:
			i.evictIdle(time.Now())
		}
	}
}

func (i *IPRateLimiter) evictIdle(now time.Time) {
	i.ips.Range(func(key, value interface{}) bool {
		if now.Sub(time.Unix(0, value.(*client).lastSeen.Load())) > i.idle {
			i.ips.Delete(key)
		}
		return true
	})
}

// Close stops the cleanup goroutine.
func (i *IPRateLimiter) Close() {
	i.once.Do(func() { close(i.stop) })
}

// RedisRateLimiter is a fixed-window counter shared by all instances.
type RedisRateLimiter struct {
	client   *redis.Client
	requests int64
	window   time.Duration
	prefix   string
}

func NewRedisRateLimiter(client *redis.Client, cfg config.RateLimit) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		requests: int64(cfg.Requests),
		window:   cfg.Window,
		prefix:   "ratelimit:",
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := time.Now().Truncate(l.window).Unix()
	redisKey := l.prefix + key + ":" + strconv.FormatInt(windowStart, 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("ошибка счётчика запросов в Redis: %w", err)
	}

	return incr.Val() <= l.requests, nil
}

// RateLimit rejects clients over the limit with 429 and a Retry-After of one
// window. Limiter errors let the request through.
func RateLimit(limiter Limiter, window time.Duration, log *slog.Logger) Middleware {
	retryAfter := strconv.FormatInt(int64(math.Ceil(window.Seconds())), 10)
	if window <= 0 {
		retryAfter = "60"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable", "error", err)
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				handlersPkg.WriteError(w, "too many requests, try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
