package middleware

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/config"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
)

// takeToken refills the bucket in whole intervals, then takes one token.
// State is a hash {n: tokens, at: last refill ms}.  Returns
// {allowed, tokens left, ms until the next refill}.
var takeToken = redis.NewScript(`
local now, cap, step, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local st = redis.call('HMGET', KEYS[1], 'n', 'at')
local n, at = tonumber(st[1]), tonumber(st[2])
if n == nil or at == nil then
  n, at = cap, now
end
local ticks = math.floor(math.max(0, now - at) / every)
if ticks > 0 then
  n = math.min(cap, n + ticks * step)
  at = at + ticks * every
end
local ok, wait = 0, 0
if n > 0 then
  ok, n = 1, n - 1
else
  wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 'n', n, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, n, wait}
`)

var errBucketReply = errors.New("rate limit: unexpected script reply")

type bucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

type decision struct {
    allowed    bool
    remaining  int64
    retryAfter time.Duration
}

func (b bucket) take(ctx context.Context, key string, now time.Time) (decision, error) {
    out, err := takeToken.Run(ctx, b.rdb, []string{key},
        now.UnixMilli(),
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL.Seconds()),
    ).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(out) != 3 {
        return decision{}, errBucketReply
    }
    return decision{
        allowed:    out[0] == 1,
        remaining:  out[1],
        retryAfter: time.Duration(out[2]) * time.Millisecond,
    }, nil
}

// retrySeconds rounds up so clients never retry before a token exists.
func (d decision) retrySeconds() int {
    return int((d.retryAfter + time.Second - 1) / time.Second)
}

// NewTokenBucket limits requests per account and route with a token
// bucket kept in Redis.  Redis failures let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *logging.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = logging.NewNoOpLogger()
    }
    b := bucket{cfg: cfg, rdb: rdb}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := bucketKey(cfg, c)
            d, err := b.take(c.Request().Context(), key, time.Now())
            if err != nil {
                log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if d.allowed {
                return next(c)
            }

            secs := d.retrySeconds()
            h.Set("Retry-After", strconv.Itoa(secs))
            log.Debug("rate limited", zap.String("key", key), zap.Duration("retry_after", d.retryAfter))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// bucketKey scopes a bucket to the caller and the route pattern, so one
// account retrying a contended bay does not throttle others.
func bucketKey(cfg config.RateLimitConfig, c echo.Context) string {
    return strings.Join([]string{cfg.Prefix, "account", accountID(c), "route", c.Request().Method + " " + c.Path()}, ":")
}
