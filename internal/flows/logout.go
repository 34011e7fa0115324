package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/goVerify/jwt"
)

type LogoutMetrics struct {
	Logout       int
	TokenRevoked int
}

type LogoutEvents struct {
	Logout string
}

type LogoutErrors struct {
	EngineNotReady error
	TokenMalformed error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseToken    func(string) (*jwt.Claims, error)
	Revoke        func(context.Context, *jwt.Claims) (bool, error)
	MapStoreError func(error) error

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout blacklists the token for the rest of its lifetime. Logging out
// twice is harmless: the second call rewrites the same entry.
func RunLogout(ctx context.Context, tokenStr string, deps LogoutDeps) error {
	normalizeLogoutDeps(&deps)
	if deps.ParseToken == nil || deps.Revoke == nil {
		return deps.Errors.EngineNotReady
	}

	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return deps.Errors.TokenMalformed
	}

	claims, err := deps.ParseToken(tokenStr)
	if err != nil {
		return err
	}

	written, err := deps.Revoke(ctx, claims)
	if err != nil {
		return deps.MapStoreError(err)
	}
	if written {
		deps.MetricInc(deps.Metrics.TokenRevoked)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, claims.UserID(), "", nil, func() map[string]string {
		return map[string]string{"jti": claims.TokenID()}
	})
	return nil
}

func normalizeLogoutDeps(deps *LogoutDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopEmitAudit
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = identityError
	}
}
