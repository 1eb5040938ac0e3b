package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "giftbox:quota:"
	// Sessions are browser-scoped, so counts expire after a month of inactivity
	keyTTL = 30 * 24 * time.Hour
)

// Returns {count, incremented}. ARGV[1] is the limit, ARGV[2] the TTL in seconds.
var tryIncrementScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= tonumber(ARGV[1]) then
  return {count, 0}
end
count = redis.call("INCR", KEYS[1])
redis.call("EXPIRE", KEYS[1], ARGV[2])
return {count, 1}
`)

// RedisStore keeps counts in Redis so several API replicas share them
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// OpenRedis connects to the Redis URL and verifies the connection
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (int, error) {
	count, err := s.client.Get(ctx, sessionKey(sessionID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *RedisStore) TryIncrement(ctx context.Context, sessionID string, limit int) (int, bool, error) {
	res, err := tryIncrementScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID)}, limit, int64(keyTTL/time.Second)).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected quota script reply: %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}

func (s *RedisStore) Name() string {
	return KindRedis
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
