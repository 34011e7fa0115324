package jwt

import (
	"errors"
	"fmt"
)

// ErrTokenInvalid is wrapped by every parse failure.
var ErrTokenInvalid = errors.New("token invalid")

var (
	ErrTokenMalformed        = fmt.Errorf("%w: malformed", ErrTokenInvalid)
	ErrTokenExpired          = fmt.Errorf("%w: expired", ErrTokenInvalid)
	ErrTokenNotYetValid      = fmt.Errorf("%w: not yet valid", ErrTokenInvalid)
	ErrTokenSignatureInvalid = fmt.Errorf("%w: signature invalid", ErrTokenInvalid)
	// ErrTokenInvalidClaims covers issuer, audience and missing-claim failures.
	ErrTokenInvalidClaims = fmt.Errorf("%w: invalid claims", ErrTokenInvalid)
	// ErrTokenRevoked is returned by callers that combine Parse with a
	// blacklist lookup. Parse itself never returns it.
	ErrTokenRevoked = fmt.Errorf("%w: revoked", ErrTokenInvalid)
)
