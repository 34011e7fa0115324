package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	AccessToken string
	TokenID     string
	ExpiresIn   time.Duration
	User        UserRecord
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	PasswordUpgraded int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	UserNotFound       error
	InvalidCredentials error
	RateLimited        error
}

type LoginDeps struct {
	ValidateIdentifier func(string) error
	LookupUser         LookupUserFunc
	VerifyPassword     func(password, hash string) (bool, error)
	NeedsUpgrade       func(hash string) bool
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(ctx context.Context, userID, hash string) error
	UpgradeOnLogin     bool

	ClientIPFromContext func(context.Context) string
	CheckLoginLimit     func(ctx context.Context, identifier, ip string) error
	RecordLoginFailure  func(ctx context.Context, identifier, ip string) error
	ResetLoginFailures  func(ctx context.Context, identifier string) error
	MapLimiterError     func(error) error

	IssueToken func(UserRecord) (raw, tokenID string, expiresIn time.Duration, err error)
	Logger     logrus.FieldLogger

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin exchanges identifier and password for a signed session token.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) (*LoginResult, error) {
	normalizeLoginDeps(&deps)
	if deps.LookupUser == nil || deps.VerifyPassword == nil || deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	identifier = strings.TrimSpace(identifier)
	ip := deps.ClientIPFromContext(ctx)

	if err := deps.ValidateIdentifier(identifier); err != nil {
		return nil, err
	}

	if err := deps.CheckLoginLimit(ctx, identifier, ip); err != nil {
		mapped := deps.MapLimiterError(err)
		if deps.Errors.RateLimited != nil && errors.Is(mapped, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", identifier, mapped, nil)
		}
		return nil, mapped
	}

	failed := func(userID string, err error, reason string) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, identifier, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		if rerr := deps.RecordLoginFailure(ctx, identifier, ip); rerr != nil {
			mapped := deps.MapLimiterError(rerr)
			if deps.Errors.RateLimited == nil || !errors.Is(mapped, deps.Errors.RateLimited) {
				deps.Logger.WithError(rerr).Warn("login failure not recorded")
			}
		}
		return nil, err
	}

	user, found, err := deps.LookupUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !found {
		return failed("", deps.Errors.UserNotFound, "user_not_found")
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		deps.Logger.WithError(err).WithField("user_id", user.UserID).Error("stored password hash unreadable")
		return failed(user.UserID, deps.Errors.InvalidCredentials, "hash_unreadable")
	}
	if !ok {
		return failed(user.UserID, deps.Errors.InvalidCredentials, "password_mismatch")
	}

	if err := deps.ResetLoginFailures(ctx, identifier); err != nil {
		deps.Logger.WithError(err).WithField("user_id", user.UserID).Warn("login failure counter reset failed")
	}

	if deps.UpgradeOnLogin && deps.NeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil && deps.NeedsUpgrade(user.PasswordHash) {
		upgradePasswordHash(ctx, user, password, deps)
	}

	raw, jti, expiresIn, err := deps.IssueToken(user)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, identifier, nil, func() map[string]string {
		return map[string]string{"jti": jti}
	})

	user.PasswordHash = ""
	return &LoginResult{
		AccessToken: raw,
		TokenID:     jti,
		ExpiresIn:   expiresIn,
		User:        user,
	}, nil
}

// upgradePasswordHash is best-effort: the login already succeeded.
func upgradePasswordHash(ctx context.Context, user UserRecord, password string, deps LoginDeps) {
	log := deps.Logger.WithField("user_id", user.UserID)
	hash, err := deps.HashPassword(password)
	if err != nil {
		log.WithError(err).Warn("password rehash failed")
		return
	}
	if err := deps.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		log.WithError(err).Warn("password hash upgrade not stored")
		return
	}
	deps.MetricInc(deps.Metrics.PasswordUpgraded)
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopEmitAudit
	}
	if deps.ValidateIdentifier == nil {
		deps.ValidateIdentifier = func(string) error { return nil }
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.CheckLoginLimit == nil {
		deps.CheckLoginLimit = func(context.Context, string, string) error { return nil }
	}
	if deps.RecordLoginFailure == nil {
		deps.RecordLoginFailure = func(context.Context, string, string) error { return nil }
	}
	if deps.ResetLoginFailures == nil {
		deps.ResetLoginFailures = func(context.Context, string) error { return nil }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = identityError
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
}
