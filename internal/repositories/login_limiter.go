package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
)

const defaultLimiterPrefix = "rl:login:"

// fixedWindowScript increments the attempt counter and starts the window on
// the first hit. It returns {allowed, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
  redis.call("PEXPIRE", key, window_ms)
end

local ttl = redis.call("PTTL", key)
if ttl < 0 then
  ttl = window_ms
end

if current > limit then
  return {0, ttl}
end
return {1, ttl}
`)

// LoginLimiterRepository is a fixed-window attempt counter in Redis, shared
// by every replica of the service.
type LoginLimiterRepository struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewLoginLimiterRepository allows limit attempts per key per window.
func NewLoginLimiterRepository(client *redis.Client, limit int, window time.Duration) *LoginLimiterRepository {
	return &LoginLimiterRepository{
		client: client,
		limit:  limit,
		window: window,
		prefix: defaultLimiterPrefix,
	}
}

// Allow records an attempt for key. When the limit is exceeded it returns
// false and how long until the window resets.
func (r *LoginLimiterRepository) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	windowMS := r.window.Milliseconds()
	if windowMS <= 0 {
		return false, 0, errors.New("invalid rate limit window")
	}

	res, err := fixedWindowScript.Run(ctx, r.client, []string{r.prefix + key}, r.limit, windowMS).Int64Slice()
	logger.Log.Infow(
		"key", r.prefix+key,
		"result", res,
		"error", err,
	)
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, errors.New("unexpected redis response")
	}

	retryAfter := time.Duration(res[1]) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = 0
	}
	return res[0] == 1, retryAfter, nil
}
