package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goVerify/codes"
)

// SendCodeMetrics carries metric IDs needed by the send flow.
type SendCodeMetrics struct {
	CodeSent      int
	CodeReused    int
	CodeThrottled int
}

// SendCodeEvents carries audit event names used by the send flow.
type SendCodeEvents struct {
	CodeSent      string
	CodeThrottled string
	CodeRejected  string
}

// SendCodeErrors carries host-level sentinel errors used by the send flow.
type SendCodeErrors struct {
	EngineNotReady error
	UserNotFound   error
	AccountExists  error
	RateLimited    error
}

type SendCodeDeps struct {
	Codes              CodeStore
	ValidateIdentifier func(string) error
	LookupUser         LookupUserFunc
	MapCodesError      func(error) error

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics SendCodeMetrics
	Events  SendCodeEvents
	Errors  SendCodeErrors
}

// accountRule says what must be true of the identifier's account before a
// code may be sent.
type accountRule int

const (
	accountAny accountRule = iota
	accountMustExist
	accountMustBeFree
)

func ruleFor(p codes.Purpose) accountRule {
	switch p {
	case codes.PurposeLoginReset:
		return accountMustExist
	case codes.PurposeRegister, codes.PurposeChangeMobile, codes.PurposeChangeEmail:
		return accountMustBeFree
	default:
		return accountAny
	}
}

// RunSendCode validates the identifier, applies the per-purpose account
// pre-check and issues (or re-sends) the code.
func RunSendCode(ctx context.Context, p codes.Purpose, identifier string, deps SendCodeDeps) (codes.SendResult, error) {
	normalizeSendCodeDeps(&deps)
	if deps.Codes == nil || deps.ValidateIdentifier == nil || deps.LookupUser == nil {
		return codes.SendResult{}, deps.Errors.EngineNotReady
	}

	identifier = strings.TrimSpace(identifier)
	if err := deps.ValidateIdentifier(identifier); err != nil {
		return codes.SendResult{}, err
	}

	if rule := ruleFor(p); rule != accountAny {
		_, found, err := deps.LookupUser(ctx, identifier)
		if err != nil {
			return codes.SendResult{}, err
		}
		var reject error
		switch {
		case rule == accountMustExist && !found:
			reject = deps.Errors.UserNotFound
		case rule == accountMustBeFree && found:
			reject = deps.Errors.AccountExists
		}
		if reject != nil {
			deps.EmitAudit(ctx, deps.Events.CodeRejected, false, "", identifier, reject, func() map[string]string {
				return map[string]string{"purpose": string(p)}
			})
			return codes.SendResult{}, reject
		}
	}

	res, err := deps.Codes.Send(ctx, p, identifier)
	if err != nil {
		mapped := deps.MapCodesError(err)
		if deps.Errors.RateLimited != nil && errors.Is(mapped, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.CodeThrottled)
			deps.EmitAudit(ctx, deps.Events.CodeThrottled, false, "", identifier, mapped, func() map[string]string {
				return map[string]string{"purpose": string(p)}
			})
		}
		return codes.SendResult{}, mapped
	}

	if res.Reused {
		deps.MetricInc(deps.Metrics.CodeReused)
	} else {
		deps.MetricInc(deps.Metrics.CodeSent)
	}
	deps.EmitAudit(ctx, deps.Events.CodeSent, true, "", identifier, res.DeliveryErr, func() map[string]string {
		return map[string]string{
			"purpose": string(p),
			"channel": string(res.Channel),
		}
	})

	return res, nil
}

func normalizeSendCodeDeps(deps *SendCodeDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetricInc
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopEmitAudit
	}
	if deps.MapCodesError == nil {
		deps.MapCodesError = identityError
	}
}
