package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login failure throttle parameters.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	// Prefix namespaces every counter key. Empty means "gv".
	Prefix string
}

// Limiter counts failed logins per identifier and per client IP using Redis
// fixed-window counters.
type Limiter struct {
	rdb redis.UniversalClient
	cfg Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "gv"
	}
	return &Limiter{rdb: rdb, cfg: cfg}
}

// CheckLogin reports ErrRateLimited when the identifier or IP already spent
// its failure budget. It does not count the current attempt. Both counters
// are read in one pipelined round trip.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	keys := l.keys(identifier, ip)

	cmds := make([]*redis.StringCmd, len(keys))
	_, err := l.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.Get(ctx, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return unavailable(err)
	}

	for _, cmd := range cmds {
		n, err := cmd.Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return unavailable(err)
		}
		if n >= int64(l.cfg.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed attempt against every counter that applies
// and reports ErrRateLimited when one of them went over budget.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	limited := false
	for _, key := range l.keys(identifier, ip) {
		n, err := l.hit(ctx, key)
		if err != nil {
			return err
		}
		if n > int64(l.cfg.MaxLoginAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the identifier counter after a successful login or a
// password reset. The IP counter is left to expire.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	if err := l.rdb.Del(ctx, l.identifierKey(identifier)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// LoginAttempts returns the current failure counter for an identifier.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	n, err := l.rdb.Get(ctx, l.identifierKey(identifier)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, unavailable(err)
	case n < 0:
		return 0, nil
	}
	return int(n), nil
}

// hit increments key and starts its window on the first hit only.
func (l *Limiter) hit(ctx context.Context, key string) (int64, error) {
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, l.cfg.LoginCooldownDuration).Err(); err != nil {
			return 0, unavailable(err)
		}
	}
	return n, nil
}

func (l *Limiter) keys(identifier, ip string) []string {
	keys := []string{l.identifierKey(identifier)}
	if l.cfg.EnableIPThrottle && ip != "" {
		keys = append(keys, l.cfg.Prefix+":login:ip:"+ip)
	}
	return keys
}

func (l *Limiter) identifierKey(identifier string) string {
	return l.cfg.Prefix + ":login:id:" + identifier
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
