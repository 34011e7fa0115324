package goVerify

import (
	"context"
	"strings"

	"github.com/MrEthical07/goVerify/jwt"
)

// Logout blacklists token until it would have expired. Logging out the same
// token twice succeeds. An expired token returns ErrTokenExpired.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.Logout(ctx, stripBearer(token))
}

// ValidateToken verifies signature, lifetime, issuer and audience, then
// rejects blacklisted tokens with ErrTokenRevoked. A blacklist outage fails
// closed with ErrStoreUnavailable.
func (e *Engine) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.ValidateToken(ctx, stripBearer(token))
}

func stripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
