package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// hitScript, sayım + ekleme işlemini Redis tarafında atomik çalıştırır.
//
// KEYS[1] = pencere key'i (sorted set, score = created_at ms)
// ARGV    = now_ms, window_ms, limit, member
// Dönüş   = {önceki sayı, en eski kaydın ms'i (yoksa -1), eklendi mi (0/1)}
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local min = '(' .. (now - window)

local count = redis.call('ZCOUNT', KEYS[1], min, now)
local oldest = -1
local first = redis.call('ZRANGEBYSCORE', KEYS[1], min, now, 'WITHSCORES', 'LIMIT', 0, 1)
if first[2] then
  oldest = tonumber(first[2])
end

if count >= limit then
  return {count, oldest, 0}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
if oldest == -1 then
  oldest = now
end
return {count, oldest, 1}
`)

// RedisStore, birden fazla process arasında paylaşılan Store.
//
// Her identifier bir sorted set'tir. Key formatı
// "<prefix>:<window_ms>:<identifier>"; Sweep, pencereyi key'den okuyarak
// süresi dolmuş üyeleri ZREMRANGEBYSCORE ile temizler. Key'in kendisi de
// PEXPIRE ile pencere sonunda düşer.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore, verilen client ile RedisStore oluşturur. prefix boşsa
// "ratelimit" kullanılır.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(identifier string, window time.Duration) string {
	return fmt.Sprintf("%s:%d:%s", s.prefix, window.Milliseconds(), identifier)
}

func (s *RedisStore) Hit(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (Usage, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()

	res, err := hitScript.Run(ctx, s.client,
		[]string{s.key(identifier, window)},
		nowMs, window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return Usage{}, fmt.Errorf("redis hit script: %w", err)
	}
	if len(res) != 3 {
		return Usage{}, fmt.Errorf("redis hit script: unexpected result length %d", len(res))
	}

	usage := Usage{Count: int(res[0]), Recorded: res[2] == 1}
	if res[1] >= 0 {
		usage.Oldest = time.UnixMilli(res[1])
	}
	return usage, nil
}

func (s *RedisStore) Count(ctx context.Context, identifier string, window time.Duration, now time.Time) (Usage, error) {
	key := s.key(identifier, window)
	nowMs := now.UnixMilli()
	min := "(" + strconv.FormatInt(nowMs-window.Milliseconds(), 10)
	max := strconv.FormatInt(nowMs, 10)

	zs, err := s.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("redis count: %w", err)
	}

	usage := Usage{Count: len(zs)}
	if len(zs) > 0 {
		usage.Oldest = time.UnixMilli(int64(zs[0].Score))
	}
	return usage, nil
}

func (s *RedisStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	var (
		removed int64
		cursor  uint64
	)
	nowMs := now.UnixMilli()

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+":*", 200).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan: %w", err)
		}

		for _, key := range keys {
			windowMs, ok := s.windowOf(key)
			if !ok {
				continue
			}
			max := strconv.FormatInt(nowMs-windowMs, 10)
			n, err := s.client.ZRemRangeByScore(ctx, key, "-inf", max).Result()
			if err != nil {
				return removed, fmt.Errorf("redis sweep %s: %w", key, err)
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// windowOf, "<prefix>:<window_ms>:<identifier>" key'inden pencereyi okur.
func (s *RedisStore) windowOf(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, s.prefix+":")
	if !ok {
		return 0, false
	}
	raw, _, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return ms, true
}
