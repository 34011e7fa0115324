package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goVerify/kvstore"
)

const (
	blacklistDomain  = "jwt"
	blacklistPurpose = "blacklist"
)

// Blacklist records revoked token ids until the tokens would have expired anyway.
type Blacklist struct {
	store kvstore.KeyedTTLStore
	now   func() time.Time
}

// NewBlacklist returns a blacklist over store. A nil now uses the wall clock.
func NewBlacklist(store kvstore.KeyedTTLStore, now func() time.Time) *Blacklist {
	if now == nil {
		now = time.Now
	}
	return &Blacklist{store: store, now: now}
}

// Revoke blacklists claims for its remaining lifetime. It reports whether an
// entry was written; an already expired token is a no-op.
func (b *Blacklist) Revoke(ctx context.Context, claims *Claims) (bool, error) {
	if claims == nil || claims.TokenID() == "" {
		return false, errors.New("revoke requires claims with a token id")
	}

	ttl := claims.Remaining(b.now())
	if ttl <= 0 {
		return false, nil
	}

	if err := b.store.SetWithTTL(ctx, b.key(claims.TokenID()), "1", ttl); err != nil {
		return false, err
	}
	return true, nil
}

// IsRevoked reports whether jti is blacklisted. Store failures wrap
// kvstore.ErrUnavailable and must not be read as "not revoked".
func (b *Blacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, found, err := b.store.Get(ctx, b.key(jti))
	if err != nil {
		return false, err
	}
	return found, nil
}

func (b *Blacklist) key(jti string) string {
	return kvstore.Key(blacklistDomain, blacklistPurpose, jti)
}
