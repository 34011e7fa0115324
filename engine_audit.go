package goVerify

import (
	"context"
	"errors"

	"github.com/MrEthical07/goVerify/internal"
	"github.com/google/uuid"
)

const (
	auditEventCodeSent          = "verify_code_sent"
	auditEventCodeThrottled     = "verify_code_throttled"
	auditEventCodeRejected      = "verify_code_rejected"
	auditEventRegisterSuccess   = "register_success"
	auditEventRegisterFailure   = "register_failure"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginRateLimited  = "login_rate_limited"
	auditEventPasswordReset     = "password_reset_success"
	auditEventPasswordResetFail = "password_reset_failure"
	auditEventIdentifierChanged = "identifier_changed"
	auditEventIdentifierFailure = "identifier_change_failure"
	auditEventLogout            = "logout"
)

// AuditErrorCode is the stable error label recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidIdentifier  AuditErrorCode = "invalid_identifier"
	auditErrInvalidPassword    AuditErrorCode = "invalid_password"
	auditErrInvalidRequest     AuditErrorCode = "invalid_request"
	auditErrUnknownPurpose     AuditErrorCode = "unknown_purpose"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit matches flows.EmitAuditFunc. identifier is masked here so no
// caller can leak a raw address into a sink.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	identifier string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if identifier != "" {
		event.Identifier = internal.MaskIdentifier(identifier)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		return auditErrInvalidIdentifier
	case errors.Is(err, ErrInvalidPassword):
		return auditErrInvalidPassword
	case errors.Is(err, ErrUnknownPurpose):
		return auditErrUnknownPurpose
	case errors.Is(err, ErrInvalidRequest):
		return auditErrInvalidRequest
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrConflict):
		return auditErrDuplicate
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
