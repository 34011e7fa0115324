package flows

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goVerify/jwt"
)

type ValidateMetrics struct {
	ValidateSuccess int
	ValidateFailure int
	ValidateRevoked int
}

type ValidateErrors struct {
	EngineNotReady error
	TokenMalformed error
	TokenRevoked   error
}

// ValidateDeps captures token validation dependencies.
type ValidateDeps struct {
	ParseToken     func(string) (*jwt.Claims, error)
	IsRevoked      func(ctx context.Context, jti string) (bool, error)
	MapStoreError  func(error) error
	Now            func() time.Time
	ObserveLatency func(time.Duration)

	MetricInc func(int)

	Metrics ValidateMetrics
	Errors  ValidateErrors
}

// RunValidateToken parses tokenStr and rejects it when its jti is
// blacklisted. A blacklist failure is never read as "not revoked".
func RunValidateToken(ctx context.Context, tokenStr string, deps ValidateDeps) (*jwt.Claims, error) {
	normalizeValidateDeps(&deps)
	if deps.ParseToken == nil || deps.IsRevoked == nil {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() {
		deps.ObserveLatency(deps.Now().Sub(start))
	}()

	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.Errors.TokenMalformed
	}

	claims, err := deps.ParseToken(tokenStr)
	if err != nil {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, err
	}

	revoked, err := deps.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.MapStoreError(err)
	}
	if revoked {
		deps.MetricInc(deps.Metrics.ValidateRevoked)
		return nil, deps.Errors.TokenRevoked
	}

	deps.MetricInc(deps.Metrics.ValidateSuccess)
	return claims, nil
}

func normalizeValidateDeps(deps *ValidateDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = identityError
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
}
