package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// OutboxRelayKey elects the single instance allowed to relay outbox events.
const OutboxRelayKey = "outbox:relay:lock"

// releaseScript deletes the key only while it still holds our value, so an
// expired holder cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// DistributedLock is a redis SET NX EX lock identified by key and owned by value.
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// NewOutboxRelayLock returns the relay leader lock held by owner.
func NewOutboxRelayLock(client *redis.Client, owner string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(client, OutboxRelayKey, owner, ttl)
}

// TryLock acquires the lock without waiting. Re-acquiring a lock this owner
// already holds succeeds and extends it.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	holder, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if holder != l.value {
		return false, nil
	}
	if err := l.client.Expire(ctx, l.key, l.expiration).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (l *DistributedLock) Unlock(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err()
}
