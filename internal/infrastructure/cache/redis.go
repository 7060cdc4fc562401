package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardsystem/internal/config"

	"github.com/go-redis/redis/v8"
)

const (
	cardKeyPrefix        = "card:details:"
	invalidatedKeyPrefix = "card:invalidated:"

	// InvalidationHold is how long Set refuses to repopulate an entry after
	// Delete. A read that loaded the row before the delete finishes well
	// inside this window.
	InvalidationHold = 10 * time.Second
)

// setUnlessInvalidated writes KEYS[1] unless the marker KEYS[2] exists.
// ARGV[2] is the ttl in milliseconds, 0 for no expiry.
var setUnlessInvalidated = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// NewRedisClient connects to redis and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// CardCache stores card detail projections as JSON under card:details:<identifier>.
type CardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCardCache(client *redis.Client, ttl time.Duration) *CardCache {
	return &CardCache{client: client, ttl: ttl}
}

func cardKey(identifier string) string {
	return cardKeyPrefix + identifier
}

func invalidatedKey(identifier string) string {
	return invalidatedKeyPrefix + identifier
}

// Get decodes the cached entry into dst. A missing key is a miss, not an error.
func (c *CardCache) Get(ctx context.Context, identifier string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, cardKey(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("corrupt cache entry %s: %w", cardKey(identifier), err)
	}
	return true, nil
}

// Set stores the projection unless the identifier was deleted within the
// last InvalidationHold. A skipped write is not an error.
func (c *CardCache) Set(ctx context.Context, identifier string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	keys := []string{cardKey(identifier), invalidatedKey(identifier)}
	return setUnlessInvalidated.Run(ctx, c.client, keys, raw, c.ttl.Milliseconds()).Err()
}

// Delete drops the entry and leaves a marker so a concurrent reader holding
// the old row cannot write it back.
func (c *CardCache) Delete(ctx context.Context, identifier string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cardKey(identifier))
		pipe.Set(ctx, invalidatedKey(identifier), 1, InvalidationHold)
		return nil
	})
	return err
}
