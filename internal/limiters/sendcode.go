package limiters

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/redis/go-redis/v9"
)

// SendCodeConfig bounds how often codes may be sent.
//
// Zero limits disable the matching window. Cooldown is the minimum gap
// between two sends to the same (purpose, identifier).
type SendCodeConfig struct {
	IdentifierLimit  int
	IdentifierWindow time.Duration
	IPLimit          int
	IPWindow         time.Duration
	Cooldown         time.Duration
	Prefix           string
}

// SendCode is a Redis backed [codes.Throttle].
type SendCode struct {
	redis  redis.UniversalClient
	config SendCodeConfig
}

func NewSendCode(redisClient redis.UniversalClient, cfg SendCodeConfig) *SendCode {
	if cfg.Prefix == "" {
		cfg.Prefix = "gv"
	}
	return &SendCode{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow runs the cooldown first so a rejected resend does not spend window budget.
func (l *SendCode) Allow(ctx context.Context, req codes.Request) error {
	if l == nil {
		return nil
	}

	if l.config.Cooldown > 0 {
		key := l.config.Prefix + ":scc:" + string(req.Purpose) + ":" + req.Identifier
		ok, err := l.redis.SetNX(ctx, key, "1", l.config.Cooldown).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if !ok {
			ttl, err := l.redis.PTTL(ctx, key).Result()
			if err != nil || ttl < 0 {
				ttl = l.config.Cooldown
			}
			return &codes.ThrottleError{Reason: ReasonCooldown, RetryAfter: ttl}
		}
	}

	if l.config.IdentifierLimit > 0 {
		key := l.config.Prefix + ":sci:" + req.Identifier
		if err := l.enforceFixedWindow(ctx, key, l.config.IdentifierLimit, l.config.IdentifierWindow, ReasonIdentifierWindow); err != nil {
			return err
		}
	}

	if l.config.IPLimit > 0 && req.ClientIP != "" {
		key := l.config.Prefix + ":scip:" + req.ClientIP
		if err := l.enforceFixedWindow(ctx, key, l.config.IPLimit, l.config.IPWindow, ReasonIPWindow); err != nil {
			return err
		}
	}

	return nil
}

func (l *SendCode) enforceFixedWindow(ctx context.Context, key string, limit int, window time.Duration, reason string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	if count > int64(limit) {
		ttl, err := l.redis.PTTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return &codes.ThrottleError{Reason: reason, RetryAfter: ttl}
	}

	return nil
}
