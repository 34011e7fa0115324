package goVerify

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/jwt"
)

// Error kinds. Every specific error below wraps exactly one kind, so callers
// can branch on either level with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
	ErrRateLimited      = errors.New("rate limited")
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDeliveryFailed is non-fatal. The code stays valid.
	ErrDeliveryFailed = codes.ErrDeliveryFailed
	ErrTokenInvalid   = jwt.ErrTokenInvalid
)

var (
	ErrInvalidIdentifier = fmt.Errorf("%w: invalid identifier", ErrValidation)
	ErrInvalidPassword   = fmt.Errorf("%w: invalid password", ErrValidation)
	ErrUnknownPurpose    = fmt.Errorf("%w: unknown purpose", ErrValidation)
	ErrInvalidRequest    = fmt.Errorf("%w: invalid request", ErrValidation)

	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrCodeInvalid        = fmt.Errorf("%w: verification code invalid", ErrUnauthorized)

	ErrAccountExists = fmt.Errorf("%w: account already exists", ErrConflict)
	// ErrProviderDuplicateIdentifier is returned by UserProvider.CreateUser
	// and UpdateIdentifier when the identifier is already taken.
	ErrProviderDuplicateIdentifier = fmt.Errorf("%w: duplicate identifier", ErrConflict)
)

// Token errors are shared with the jwt package so that both layers agree.
var (
	ErrTokenMalformed        = jwt.ErrTokenMalformed
	ErrTokenExpired          = jwt.ErrTokenExpired
	ErrTokenNotYetValid      = jwt.ErrTokenNotYetValid
	ErrTokenSignatureInvalid = jwt.ErrTokenSignatureInvalid
	ErrTokenInvalidClaims    = jwt.ErrTokenInvalidClaims
	ErrTokenRevoked          = jwt.ErrTokenRevoked
)

// ErrEngineNotReady is returned when an Engine method is called on a nil or
// partially built engine.
var ErrEngineNotReady = errors.New("engine not initialized")

// RateLimitError is the structured rejection returned by SendVerifyCode.
// It wraps ErrRateLimited.
type RateLimitError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: %s (retry after %s)", ErrRateLimited, e.Reason, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("%s: %s", ErrRateLimited, e.Reason)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// mapCodesError translates codes package failures into the engine taxonomy.
func mapCodesError(err error) error {
	if err == nil {
		return nil
	}

	var te *codes.ThrottleError
	switch {
	case errors.As(err, &te):
		return &RateLimitError{Reason: te.Reason, RetryAfter: te.RetryAfter}
	case errors.Is(err, codes.ErrUnknownPurpose):
		return ErrUnknownPurpose
	case errors.Is(err, codes.ErrInvalidIdentifier):
		return ErrInvalidIdentifier
	case errors.Is(err, codes.ErrStoreUnavailable):
		return storeUnavailable(err)
	default:
		return err
	}
}
