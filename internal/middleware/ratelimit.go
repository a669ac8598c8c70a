package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/fibre52/survey-api/internal/config"
)

// CounterStore is a shared fixed-window counter. Hit atomically increments
// the counter for key, starting a fresh window when none is active, and
// returns the post-increment count plus the time left in the window.
// Counters for concurrent requests on the same key must not race.
type CounterStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// KeyFunc derives the counter key for a request. The policy name is
// prepended by the middleware, so implementations only return the
// per-caller part.
type KeyFunc func(c echo.Context) string

// RateLimit returns middleware enforcing one policy. The window is fixed:
// it opens on the first hit and resets only by elapsing, so failed attempts
// keep counting against the caller. Rejections render the fixed envelope
// directly and never reach the error translator. A failing store fails
// open — an unreachable Redis must not take authentication down with it.
func RateLimit(policy config.RateLimitPolicy, store CounterStore, key KeyFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			k := policy.Name + ":" + key(c)
			count, remaining, err := store.Hit(c.Request().Context(), k, policy.Window)
			if err != nil {
				c.Logger().Warnf("ratelimit: store error for key=%s: %v", k, err)
				return next(c)
			}

			left := policy.Max - count
			if left < 0 {
				left = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(policy.Max, 10))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))

			if count > policy.Max {
				secs := int(math.Ceil(remaining.Seconds()))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"success":    false,
					"message":    policy.Message,
					"statusCode": http.StatusTooManyRequests,
				})
			}
			return next(c)
		}
	}
}

// KeyByEmail keys anonymous-flow endpoints by the email in the JSON body,
// falling back to the client IP when no email is supplied. The body is
// peeked and restored so binding in the handler still works.
func KeyByEmail(c echo.Context) string {
	if email := peekEmail(c); email != "" {
		return strings.ToLower(email)
	}
	return clientIP(c)
}

// KeyByIdentity keys authenticated endpoints by the resolved user id,
// falling back to the client IP for anonymous callers.
func KeyByIdentity(c echo.Context) string {
	if v := c.Get(CtxUserID); v != nil {
		if id, ok := v.(uint64); ok && id != 0 {
			return strconv.FormatUint(id, 10)
		}
	}
	return clientIP(c)
}

// KeyByIP keys strictly by client IP, used for registration.
func KeyByIP(c echo.Context) string { return clientIP(c) }

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// maxPeekBytes caps how much of a body peekEmail buffers. The flows keyed
// by email carry small JSON payloads; anything bigger is not inspected.
const maxPeekBytes = 1 << 16

// peekEmail reads the request body looking for an "email" field and puts
// the bytes back so the handler can bind the body again. Bodies over
// maxPeekBytes are passed through whole and the caller keys by IP instead.
func peekEmail(c echo.Context) string {
	req := c.Request()
	if req.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBytes+1))
	if len(body) > maxPeekBytes {
		req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), req.Body))
		return ""
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var probe struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.Email)
}

// RedisCounterStore implements CounterStore on Redis so counters are shared
// across instances. INCR and the window TTL are applied in one script to
// keep increment-and-compare atomic under concurrent requests.
type RedisCounterStore struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewRedisCounterStore(rdb *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{
		rdb: rdb,
		script: redis.NewScript(`
            local count = redis.call('INCR', KEYS[1])
            if count == 1 then
                redis.call('PEXPIRE', KEYS[1], ARGV[1])
            end
            local ttl = redis.call('PTTL', KEYS[1])
            if ttl < 0 then
                redis.call('PEXPIRE', KEYS[1], ARGV[1])
                ttl = tonumber(ARGV[1])
            end
            return { count, ttl }
        `),
	}
}

func (s *RedisCounterStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := s.script.Run(ctx, s.rdb, []string{"rl:" + key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 2 {
		return 0, 0, fmt.Errorf("ratelimit: unexpected script result %#v", vals)
	}
	count, _ := arr[0].(int64)
	ttlMs, _ := arr[1].(int64)
	return count, time.Duration(ttlMs) * time.Millisecond, nil
}

// MemoryCounterStore implements CounterStore in process memory. It is the
// degrade path when Redis is unreachable at startup and the store used in
// tests. Windows are pruned lazily on access.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count int64
	until time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{windows: make(map[string]*memoryWindow), now: time.Now}
}

func (s *MemoryCounterStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.until) {
		w = &memoryWindow{until: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.until.Sub(now), nil
}
