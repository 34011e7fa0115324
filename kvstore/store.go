package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrUnavailable wraps every backend failure. Callers must treat it as
	// "state unknown", never as a positive or negative answer.
	ErrUnavailable = errors.New("kv store unavailable")
	// ErrInvalidTTL is returned by SetWithTTL when ttl is not positive.
	ErrInvalidTTL = errors.New("kv store ttl must be > 0")
	// ErrEmptyKey is returned when an operation receives an empty key.
	ErrEmptyKey = errors.New("kv store key must not be empty")
)

// KeyedTTLStore is a get/set/delete abstraction over an expiring key-value backend.
//
// Implementations must be safe for concurrent use.
type KeyedTTLStore interface {
	// Get returns the stored value and found=true, or found=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetWithTTL stores value under key, replacing any previous value and TTL.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// Key joins domain, purpose and identifier into "<domain>:<purpose>:<identifier>".
// Empty segments are kept so that distinct triples never collide.
func Key(domain, purpose, identifier string) string {
	var b strings.Builder
	b.Grow(len(domain) + len(purpose) + len(identifier) + 2)
	b.WriteString(domain)
	b.WriteByte(':')
	b.WriteString(purpose)
	b.WriteByte(':')
	b.WriteString(identifier)
	return b.String()
}
