package codes

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrThrottled is wrapped by every [ThrottleError].
var ErrThrottled = errors.New("verification code send throttled")

// Request describes one send attempt presented to a [Throttle].
type Request struct {
	Purpose    Purpose
	Identifier string
	ClientIP   string
}

// Throttle decides whether a send may proceed. It returns nil to allow, a
// *ThrottleError to reject, and any other error when its own backend failed.
type Throttle interface {
	Allow(ctx context.Context, req Request) error
}

// ThrottleFunc adapts a function to [Throttle].
type ThrottleFunc func(ctx context.Context, req Request) error

func (f ThrottleFunc) Allow(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// AllowAll is the permissive default throttle.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, Request) error { return nil }

// ThrottleError is a structured rejection. Reason is a stable machine-readable
// string such as "identifier_window" or "cooldown".
type ThrottleError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: %s (retry after %s)", ErrThrottled, e.Reason, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("%s: %s", ErrThrottled, e.Reason)
}

func (e *ThrottleError) Unwrap() error {
	return ErrThrottled
}

// Chain runs throttles in order and stops at the first rejection or failure.
func Chain(throttles ...Throttle) Throttle {
	return ThrottleFunc(func(ctx context.Context, req Request) error {
		for _, t := range throttles {
			if t == nil {
				continue
			}
			if err := t.Allow(ctx, req); err != nil {
				return err
			}
		}
		return nil
	})
}
