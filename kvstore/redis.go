package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements [KeyedTTLStore] on top of a go-redis client.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis-backed store. A non-empty prefix is prepended to every
// key as "<prefix>:" so several deployments can share one Redis database.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Redis) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get returns the value stored under key.
func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, wrapUnavailable(err)
	}

	return value, true, nil
}

// SetWithTTL stores value under key with the given ttl.
func (s *Redis) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return wrapUnavailable(err)
	}

	return nil
}

// Delete removes key.
func (s *Redis) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return wrapUnavailable(err)
	}

	return nil
}

// TTL reports the remaining lifetime of key. It returns 0 when the key is absent
// or has no expiry.
func (s *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}

	ttl, err := s.redis.PTTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}
