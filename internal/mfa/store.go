package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore holds hashed one-time codes keyed by user and provider, with a
// TTL. A stored code is consumed exactly once: Consume removes it whether or
// not the caller's comparison succeeds afterward.
type CodeStore interface {
	// Put stores the code hash for (userID, providerKey) with the given TTL,
	// replacing any previous code for the same pair.
	Put(ctx context.Context, userID, providerKey, codeHash string, ttl time.Duration) error
	// Consume atomically fetches and deletes the stored hash. Returns ok
	// false when no unexpired code exists.
	Consume(ctx context.Context, userID, providerKey string) (codeHash string, ok bool, err error)
}

// RedisStore implements CodeStore on Redis. TTL enforcement and the
// fetch-and-delete are handled server-side, so concurrent verify attempts
// cannot both succeed.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a CodeStore backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func codeKey(userID, providerKey string) string {
	return "mfa:code:" + userID + ":" + providerKey
}

// Put stores the code hash with the given TTL.
func (s *RedisStore) Put(ctx context.Context, userID, providerKey, codeHash string, ttl time.Duration) error {
	return s.client.Set(ctx, codeKey(userID, providerKey), codeHash, ttl).Err()
}

// Consume fetches and deletes the stored hash in one round trip.
func (s *RedisStore) Consume(ctx context.Context, userID, providerKey string) (string, bool, error) {
	val, err := s.client.GetDel(ctx, codeKey(userID, providerKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}
