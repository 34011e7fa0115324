package codes

import (
	"context"
	"errors"
	"time"
)

// ErrDeliveryFailed wraps sender failures. Delivery failure never un-stores a code.
var ErrDeliveryFailed = errors.New("verification code delivery failed")

// Delivery is the message handed to a [Sender].
type Delivery struct {
	ID         string
	Purpose    Purpose
	Channel    Channel
	Identifier string
	Code       string
	// Title is the human-readable purpose label used in subjects and SMS bodies.
	Title    string
	TTL      time.Duration
	IssuedAt time.Time
}

// Sender delivers a code to its channel identifier. Implementations live in the
// delivery package.
type Sender interface {
	Deliver(ctx context.Context, d Delivery) error
}

// SenderFunc adapts a function to [Sender].
type SenderFunc func(ctx context.Context, d Delivery) error

func (f SenderFunc) Deliver(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// DiscardSender accepts every delivery and does nothing.
type DiscardSender struct{}

func (DiscardSender) Deliver(context.Context, Delivery) error { return nil }

// DefaultTitles maps built-in purposes to delivery titles.
func DefaultTitles() map[Purpose]string {
	return map[Purpose]string{
		PurposeRegister:     "Account registration",
		PurposeLoginReset:   "Password reset",
		PurposeChangeMobile: "Change mobile number",
		PurposeChangeEmail:  "Change email address",
	}
}
