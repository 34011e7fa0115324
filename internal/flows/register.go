package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/sirupsen/logrus"
)

type RegisterRequest struct {
	Identifier string
	Password   string
	Nickname   string
	Code       string
}

type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	CodeCheckFailure  int
}

type RegisterEvents struct {
	RegisterSuccess string
	RegisterFailure string
}

type RegisterErrors struct {
	EngineNotReady              error
	CodeInvalid                 error
	AccountExists               error
	ProviderDuplicateIdentifier error
}

type RegisterDeps struct {
	Codes              CodeStore
	ValidateIdentifier func(string) error
	ValidatePassword   func(string) error
	ValidateRequest    func(RegisterRequest) error
	LookupUser         LookupUserFunc
	HashPassword       func(string) (string, error)
	CreateUser         func(context.Context, NewUserInput) (UserRecord, error)
	MapCodesError      func(error) error
	Logger             logrus.FieldLogger

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister creates an account once the register code checks out. The code
// is deleted only after the account exists; a failed check never reaches the
// user store.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (UserRecord, error) {
	normalizeRegisterDeps(&deps)
	if deps.Codes == nil || deps.LookupUser == nil || deps.HashPassword == nil || deps.CreateUser == nil {
		return UserRecord{}, deps.Errors.EngineNotReady
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Code = strings.TrimSpace(req.Code)

	fail := func(err error, reason string) (UserRecord, error) {
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", req.Identifier, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return UserRecord{}, err
	}

	if err := deps.ValidateIdentifier(req.Identifier); err != nil {
		return fail(err, "invalid_identifier")
	}
	if err := deps.ValidatePassword(req.Password); err != nil {
		return fail(err, "password_policy")
	}
	if err := deps.ValidateRequest(req); err != nil {
		return fail(err, "invalid_request")
	}

	if err := verifyCode(ctx, deps.Codes, codes.PurposeRegister, req.Identifier, req.Code, deps.MapCodesError, deps.Errors.CodeInvalid); err != nil {
		if errors.Is(err, deps.Errors.CodeInvalid) {
			deps.MetricInc(deps.Metrics.CodeCheckFailure)
		}
		return fail(err, "code_check")
	}

	_, found, err := deps.LookupUser(ctx, req.Identifier)
	if err != nil {
		return fail(err, "lookup")
	}
	if found {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		return fail(deps.Errors.AccountExists, "duplicate")
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return fail(err, "hash")
	}

	mobile, email := splitIdentifier(req.Identifier)
	user, err := deps.CreateUser(ctx, NewUserInput{
		Identifier:   req.Identifier,
		Mobile:       mobile,
		Email:        email,
		PasswordHash: hash,
		Nickname:     req.Nickname,
	})
	if err != nil {
		if errors.Is(err, deps.Errors.ProviderDuplicateIdentifier) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			return fail(deps.Errors.AccountExists, "duplicate")
		}
		return fail(err, "create_user")
	}

	// The account exists now; a lingering code only expires on its own.
	if err := deps.Codes.Delete(ctx, codes.PurposeRegister, req.Identifier); err != nil {
		deps.Logger.WithError(err).WithField("user_id", user.UserID).Warn("register code delete failed")
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, user.UserID, req.Identifier, nil, nil)
	return user, nil
}

func normalizeRegisterDeps(deps *RegisterDeps) {
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
	if deps.ValidateRequest == nil {
		deps.ValidateRequest = func(RegisterRequest) error { return nil }
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
}
