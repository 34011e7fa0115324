package goVerify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/internal"
	internalaudit "github.com/MrEthical07/goVerify/internal/audit"
	"github.com/MrEthical07/goVerify/internal/flows"
	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/MrEthical07/goVerify/internal/validate"
	"github.com/MrEthical07/goVerify/jwt"
	"github.com/MrEthical07/goVerify/password"
	"github.com/sirupsen/logrus"
)

// Engine ties the code manager, the token issuer and the user store together.
// Build one with [New]...[Builder.Build]; its methods are safe for concurrent use.
type Engine struct {
	config       Config
	codes        *codes.Manager
	issuer       *jwt.Issuer
	blacklist    *jwt.Blacklist
	passwords    *password.Hasher
	rateLimiter  *rate.Limiter
	userProvider UserProvider
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	log          logrus.FieldLogger
	now          func() time.Time
	flows        flows.Service
}

// Close drains the delivery and audit queues. Call it once on shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.codes.Close()
	e.audit.Close()
}

// AuditDropped returns how many audit events were dropped because the queue was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// DeliveryDropped returns how many code deliveries were dropped. The codes
// themselves were stored and stay valid.
func (e *Engine) DeliveryDropped() uint64 {
	if e == nil || e.codes == nil {
		return 0
	}
	return e.codes.DeliveryDropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Purposes returns the recognized purpose set.
func (e *Engine) Purposes() []Purpose {
	if e == nil || e.codes == nil {
		return nil
	}
	return e.codes.Purposes()
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized() && e.userProvider != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) onDelivery(d codes.Delivery, err error) {
	if err != nil {
		e.metricInc(MetricCodeDeliveryFailed)
		return
	}
	e.metricInc(MetricCodeDelivered)
}

func (e *Engine) validateIdentifier(identifier string) error {
	if err := validate.Identifier(identifier); err != nil {
		return ErrInvalidIdentifier
	}
	return nil
}

func (e *Engine) validatePassword(pw string) error {
	if err := validate.Password(pw, e.config.Password.MinLength, e.config.Password.MaxLength); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

func (e *Engine) validateRegister(req flows.RegisterRequest) error {
	if err := validate.Struct(RegisterRequest{
		Identifier: req.Identifier,
		Password:   req.Password,
		Nickname:   req.Nickname,
		Code:       req.Code,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (e *Engine) lookupUser(ctx context.Context, identifier string) (flows.UserRecord, bool, error) {
	acct, err := e.userProvider.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return flows.UserRecord{}, false, nil
		}
		e.log.WithError(err).WithField("identifier", internal.MaskIdentifier(identifier)).Error("user lookup failed")
		return flows.UserRecord{}, false, mapProviderError(err)
	}
	return recordFromAccount(acct), true, nil
}

func (e *Engine) createUser(ctx context.Context, in flows.NewUserInput) (flows.UserRecord, error) {
	acct, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Identifier:   in.Identifier,
		Mobile:       in.Mobile,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Nickname:     in.Nickname,
	})
	if err != nil {
		return flows.UserRecord{}, mapProviderError(err)
	}
	return recordFromAccount(acct), nil
}

func (e *Engine) updatePasswordHash(ctx context.Context, userID, hash string) error {
	return mapProviderError(e.userProvider.UpdatePasswordHash(ctx, userID, hash))
}

func (e *Engine) updateIdentifier(ctx context.Context, userID string, p codes.Purpose, identifier string) error {
	return mapProviderError(e.userProvider.UpdateIdentifier(ctx, userID, p, identifier))
}

// hashPassword maps the hasher's own length bounds onto ErrInvalidPassword.
func (e *Engine) hashPassword(pw string) (string, error) {
	hash, err := e.passwords.Hash(pw)
	if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return hash, err
}

func (e *Engine) needsUpgrade(hash string) bool {
	upgrade, err := e.passwords.NeedsUpgrade(hash)
	return err == nil && upgrade
}

func (e *Engine) issueToken(user flows.UserRecord) (string, string, time.Duration, error) {
	tok, err := e.issuer.Issue(e.config.Token.Subject, map[string]any{"user_id": user.UserID}, 0)
	if err != nil {
		return "", "", 0, err
	}
	return tok.Raw, tok.Claims.TokenID(), e.issuer.TTL(), nil
}

func (e *Engine) checkLoginLimit(ctx context.Context, identifier, ip string) error {
	return e.rateLimiter.CheckLogin(ctx, internal.HashIdentifier(identifier), ip)
}

func (e *Engine) recordLoginFailure(ctx context.Context, identifier, ip string) error {
	return e.rateLimiter.IncrementLogin(ctx, internal.HashIdentifier(identifier), ip)
}

func (e *Engine) resetLoginFailures(ctx context.Context, identifier string) error {
	return e.rateLimiter.ResetLogin(ctx, internal.HashIdentifier(identifier))
}

func (e *Engine) mapLimiterError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		return &RateLimitError{Reason: "login_attempts", RetryAfter: e.config.Throttle.LoginCooldown}
	}
	e.log.WithError(err).Error("login limiter unavailable")
	return storeUnavailable(err)
}

func (e *Engine) mapCodesError(err error) error {
	mapped := mapCodesError(err)
	if errors.Is(mapped, ErrStoreUnavailable) {
		e.log.WithError(err).Error("verification code store unavailable")
	}
	return mapped
}

func (e *Engine) mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	e.log.WithError(err).Error("token blacklist unavailable")
	return storeUnavailable(err)
}

func (e *Engine) observeValidateLatency(d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricValidateLatency, d)
}

// mapProviderError keeps taxonomy errors from the provider as they are and
// treats anything else as a backend failure.
func mapProviderError(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrStoreUnavailable} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return storeUnavailable(err)
}

func recordFromAccount(a Account) flows.UserRecord {
	return flows.UserRecord{
		UserID:       a.UserID,
		Identifier:   a.Identifier,
		Mobile:       a.Mobile,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Nickname:     a.Nickname,
		Avatar:       a.Avatar,
		Motto:        a.Motto,
		Gender:       a.Gender,
		CreatedAt:    a.CreatedAt,
	}
}

func accountFromRecord(r flows.UserRecord) Account {
	return Account{
		UserID:       r.UserID,
		Identifier:   r.Identifier,
		Mobile:       r.Mobile,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Nickname:     r.Nickname,
		Avatar:       r.Avatar,
		Motto:        r.Motto,
		Gender:       r.Gender,
		CreatedAt:    r.CreatedAt,
	}
}

func (e *Engine) buildFlowDeps() flows.Deps {
	return flows.Deps{
		SendCode: flows.SendCodeDeps{
			Codes:              e.codes,
			ValidateIdentifier: e.validateIdentifier,
			LookupUser:         e.lookupUser,
			MapCodesError:      e.mapCodesError,
			MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:          e.emitAudit,
			Metrics: flows.SendCodeMetrics{
				CodeSent:      int(MetricCodeSent),
				CodeReused:    int(MetricCodeReused),
				CodeThrottled: int(MetricCodeThrottled),
			},
			Events: flows.SendCodeEvents{
				CodeSent:      auditEventCodeSent,
				CodeThrottled: auditEventCodeThrottled,
				CodeRejected:  auditEventCodeRejected,
			},
			Errors: flows.SendCodeErrors{
				EngineNotReady: ErrEngineNotReady,
				UserNotFound:   ErrUserNotFound,
				AccountExists:  ErrAccountExists,
				RateLimited:    ErrRateLimited,
			},
		},
		Register: flows.RegisterDeps{
			Codes:              e.codes,
			ValidateIdentifier: e.validateIdentifier,
			ValidatePassword:   e.validatePassword,
			ValidateRequest:    e.validateRegister,
			LookupUser:         e.lookupUser,
			HashPassword:       e.hashPassword,
			CreateUser:         e.createUser,
			MapCodesError:      e.mapCodesError,
			Logger:             e.log,
			MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:          e.emitAudit,
			Metrics: flows.RegisterMetrics{
				RegisterSuccess:   int(MetricRegisterSuccess),
				RegisterDuplicate: int(MetricRegisterDuplicate),
				CodeCheckFailure:  int(MetricCodeCheckFailure),
			},
			Events: flows.RegisterEvents{
				RegisterSuccess: auditEventRegisterSuccess,
				RegisterFailure: auditEventRegisterFailure,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady:              ErrEngineNotReady,
				CodeInvalid:                 ErrCodeInvalid,
				AccountExists:               ErrAccountExists,
				ProviderDuplicateIdentifier: ErrProviderDuplicateIdentifier,
			},
		},
		Login: flows.LoginDeps{
			ValidateIdentifier:  e.validateIdentifier,
			LookupUser:          e.lookupUser,
			VerifyPassword:      e.passwords.Verify,
			NeedsUpgrade:        e.needsUpgrade,
			HashPassword:        e.hashPassword,
			UpdatePasswordHash:  e.updatePasswordHash,
			UpgradeOnLogin:      e.config.Password.UpgradeOnLogin,
			ClientIPFromContext: clientIPFromContext,
			CheckLoginLimit:     e.checkLoginLimit,
			RecordLoginFailure:  e.recordLoginFailure,
			ResetLoginFailures:  e.resetLoginFailures,
			MapLimiterError:     e.mapLimiterError,
			IssueToken:          e.issueToken,
			Logger:              e.log,
			MetricInc:           func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:           e.emitAudit,
			Metrics: flows.LoginMetrics{
				LoginSuccess:     int(MetricLoginSuccess),
				LoginFailure:     int(MetricLoginFailure),
				LoginRateLimited: int(MetricLoginRateLimited),
				PasswordUpgraded: int(MetricPasswordUpgraded),
			},
			Events: flows.LoginEvents{
				LoginSuccess:     auditEventLoginSuccess,
				LoginFailure:     auditEventLoginFailure,
				LoginRateLimited: auditEventLoginRateLimited,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				UserNotFound:       ErrUserNotFound,
				InvalidCredentials: ErrInvalidCredentials,
				RateLimited:        ErrRateLimited,
			},
		},
		Reset: flows.ResetDeps{
			Codes:              e.codes,
			ValidateIdentifier: e.validateIdentifier,
			ValidatePassword:   e.validatePassword,
			LookupUser:         e.lookupUser,
			HashPassword:       e.hashPassword,
			UpdatePasswordHash: e.updatePasswordHash,
			ResetLoginFailures: e.resetLoginFailures,
			MapCodesError:      e.mapCodesError,
			Logger:             e.log,
			MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:          e.emitAudit,
			Metrics: flows.ResetMetrics{
				ResetSuccess:     int(MetricPasswordResetSuccess),
				ResetFailure:     int(MetricPasswordResetFailure),
				CodeCheckFailure: int(MetricCodeCheckFailure),
			},
			Events: flows.ResetEvents{
				ResetSuccess: auditEventPasswordReset,
				ResetFailure: auditEventPasswordResetFail,
			},
			Errors: flows.ResetErrors{
				EngineNotReady: ErrEngineNotReady,
				CodeInvalid:    ErrCodeInvalid,
				UserNotFound:   ErrUserNotFound,
			},
		},
		Logout: flows.LogoutDeps{
			ParseToken:    e.issuer.Parse,
			Revoke:        e.blacklist.Revoke,
			MapStoreError: e.mapStoreError,
			MetricInc:     func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:     e.emitAudit,
			Metrics: flows.LogoutMetrics{
				Logout:       int(MetricLogout),
				TokenRevoked: int(MetricTokenRevoked),
			},
			Events: flows.LogoutEvents{
				Logout: auditEventLogout,
			},
			Errors: flows.LogoutErrors{
				EngineNotReady: ErrEngineNotReady,
				TokenMalformed: ErrTokenMalformed,
			},
		},
		ChangeIdentifier: flows.ChangeIdentifierDeps{
			Codes:              e.codes,
			ValidateIdentifier: e.validateIdentifier,
			UpdateIdentifier:   e.updateIdentifier,
			MapCodesError:      e.mapCodesError,
			Logger:             e.log,
			MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:          e.emitAudit,
			Metrics: flows.ChangeIdentifierMetrics{
				ChangeSuccess:    int(MetricIdentifierChanged),
				CodeCheckFailure: int(MetricCodeCheckFailure),
			},
			Events: flows.ChangeIdentifierEvents{
				ChangeSuccess: auditEventIdentifierChanged,
				ChangeFailure: auditEventIdentifierFailure,
			},
			Errors: flows.ChangeIdentifierErrors{
				EngineNotReady:              ErrEngineNotReady,
				InvalidRequest:              ErrInvalidRequest,
				InvalidIdentifier:           ErrInvalidIdentifier,
				CodeInvalid:                 ErrCodeInvalid,
				AccountExists:               ErrAccountExists,
				ProviderDuplicateIdentifier: ErrProviderDuplicateIdentifier,
			},
		},
		Validate: flows.ValidateDeps{
			ParseToken:     e.issuer.Parse,
			IsRevoked:      e.blacklist.IsRevoked,
			MapStoreError:  e.mapStoreError,
			Now:            e.now,
			ObserveLatency: e.observeValidateLatency,
			MetricInc:      func(id int) { e.metricInc(MetricID(id)) },
			Metrics: flows.ValidateMetrics{
				ValidateSuccess: int(MetricValidateSuccess),
				ValidateFailure: int(MetricValidateFailure),
				ValidateRevoked: int(MetricValidateRevoked),
			},
			Errors: flows.ValidateErrors{
				EngineNotReady: ErrEngineNotReady,
				TokenMalformed: ErrTokenMalformed,
				TokenRevoked:   ErrTokenRevoked,
			},
		},
	}
}
