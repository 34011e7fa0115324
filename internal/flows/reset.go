package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/sirupsen/logrus"
)

type ResetMetrics struct {
	ResetSuccess     int
	ResetFailure     int
	CodeCheckFailure int
}

type ResetEvents struct {
	ResetSuccess string
	ResetFailure string
}

type ResetErrors struct {
	EngineNotReady error
	CodeInvalid    error
	UserNotFound   error
}

type ResetDeps struct {
	Codes              CodeStore
	ValidateIdentifier func(string) error
	ValidatePassword   func(string) error
	LookupUser         LookupUserFunc
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(ctx context.Context, userID, hash string) error
	// ResetLoginFailures clears the failed-login counter once the password changed.
	ResetLoginFailures func(ctx context.Context, identifier string) error
	MapCodesError      func(error) error
	Logger             logrus.FieldLogger

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics ResetMetrics
	Events  ResetEvents
	Errors  ResetErrors
}

// RunResetPassword replaces the password of the account behind identifier
// after a successful login-reset code check.
func RunResetPassword(ctx context.Context, identifier, code, newPassword string, deps ResetDeps) error {
	normalizeResetDeps(&deps)
	if deps.Codes == nil || deps.LookupUser == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	identifier = strings.TrimSpace(identifier)
	code = strings.TrimSpace(code)

	fail := func(err error, userID, reason string) error {
		deps.MetricInc(deps.Metrics.ResetFailure)
		deps.EmitAudit(ctx, deps.Events.ResetFailure, false, userID, identifier, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	if err := deps.ValidateIdentifier(identifier); err != nil {
		return fail(err, "", "invalid_identifier")
	}
	if err := deps.ValidatePassword(newPassword); err != nil {
		return fail(err, "", "password_policy")
	}

	if err := verifyCode(ctx, deps.Codes, codes.PurposeLoginReset, identifier, code, deps.MapCodesError, deps.Errors.CodeInvalid); err != nil {
		if errors.Is(err, deps.Errors.CodeInvalid) {
			deps.MetricInc(deps.Metrics.CodeCheckFailure)
		}
		return fail(err, "", "code_check")
	}

	user, found, err := deps.LookupUser(ctx, identifier)
	if err != nil {
		return fail(err, "", "lookup")
	}
	if !found {
		return fail(deps.Errors.UserNotFound, "", "user_not_found")
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fail(err, user.UserID, "hash")
	}
	if err := deps.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		return fail(err, user.UserID, "update")
	}

	if err := deps.Codes.Delete(ctx, codes.PurposeLoginReset, identifier); err != nil {
		deps.Logger.WithError(err).WithField("user_id", user.UserID).Warn("reset code delete failed")
	}
	if err := deps.ResetLoginFailures(ctx, identifier); err != nil {
		deps.Logger.WithError(err).WithField("user_id", user.UserID).Warn("login failure counter reset failed")
	}

	deps.MetricInc(deps.Metrics.ResetSuccess)
	deps.EmitAudit(ctx, deps.Events.ResetSuccess, true, user.UserID, identifier, nil, nil)
	return nil
}

func normalizeResetDeps(deps *ResetDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopEmitAudit
	}
	if deps.MapCodesError == nil {
		deps.MapCodesError = identityError
	}
	if deps.ValidateIdentifier == nil {
		deps.ValidateIdentifier = func(string) error { return nil }
	}
	if deps.ValidatePassword == nil {
		deps.ValidatePassword = func(string) error { return nil }
	}
	if deps.ResetLoginFailures == nil {
		deps.ResetLoginFailures = func(context.Context, string) error { return nil }
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
}
