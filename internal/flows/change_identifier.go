package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/sirupsen/logrus"
)

type ChangeIdentifierMetrics struct {
	ChangeSuccess    int
	CodeCheckFailure int
}

type ChangeIdentifierEvents struct {
	ChangeSuccess string
	ChangeFailure string
}

type ChangeIdentifierErrors struct {
	EngineNotReady              error
	InvalidRequest              error
	InvalidIdentifier           error
	CodeInvalid                 error
	AccountExists               error
	ProviderDuplicateIdentifier error
}

type ChangeIdentifierDeps struct {
	Codes              CodeStore
	ValidateIdentifier func(string) error
	UpdateIdentifier   func(ctx context.Context, userID string, p codes.Purpose, identifier string) error
	MapCodesError      func(error) error
	Logger             logrus.FieldLogger

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics ChangeIdentifierMetrics
	Events  ChangeIdentifierEvents
	Errors  ChangeIdentifierErrors
}

// RunChangeIdentifier binds a new mobile number or email address to userID.
// The code must have been sent to the new identifier under the matching
// change purpose.
func RunChangeIdentifier(ctx context.Context, userID string, p codes.Purpose, identifier, code string, deps ChangeIdentifierDeps) error {
	normalizeChangeIdentifierDeps(&deps)
	if deps.Codes == nil || deps.UpdateIdentifier == nil {
		return deps.Errors.EngineNotReady
	}

	userID = strings.TrimSpace(userID)
	identifier = strings.TrimSpace(identifier)
	code = strings.TrimSpace(code)

	fail := func(err error, reason string) error {
		deps.EmitAudit(ctx, deps.Events.ChangeFailure, false, userID, identifier, err, func() map[string]string {
			return map[string]string{"purpose": string(p), "reason": reason}
		})
		return err
	}

	if userID == "" {
		return fail(deps.Errors.InvalidRequest, "missing_user")
	}
	var want codes.Channel
	switch p {
	case codes.PurposeChangeMobile:
		want = codes.ChannelSMS
	case codes.PurposeChangeEmail:
		want = codes.ChannelEmail
	default:
		return fail(deps.Errors.InvalidRequest, "purpose")
	}
	if err := deps.ValidateIdentifier(identifier); err != nil {
		return fail(err, "invalid_identifier")
	}
	if codes.ChannelFor(identifier) != want {
		return fail(deps.Errors.InvalidIdentifier, "channel_mismatch")
	}

	if err := verifyCode(ctx, deps.Codes, p, identifier, code, deps.MapCodesError, deps.Errors.CodeInvalid); err != nil {
		if errors.Is(err, deps.Errors.CodeInvalid) {
			deps.MetricInc(deps.Metrics.CodeCheckFailure)
		}
		return fail(err, "code_check")
	}

	if err := deps.UpdateIdentifier(ctx, userID, p, identifier); err != nil {
		if errors.Is(err, deps.Errors.ProviderDuplicateIdentifier) {
			return fail(deps.Errors.AccountExists, "duplicate")
		}
		return fail(err, "update")
	}

	if err := deps.Codes.Delete(ctx, p, identifier); err != nil {
		deps.Logger.WithError(err).WithField("user_id", userID).Warn("change code delete failed")
	}

	deps.MetricInc(deps.Metrics.ChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.ChangeSuccess, true, userID, identifier, nil, func() map[string]string {
		return map[string]string{"purpose": string(p)}
	})
	return nil
}

func normalizeChangeIdentifierDeps(deps *ChangeIdentifierDeps) {
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
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
}
