package goVerify

import (
	"context"
	"strings"
)

// SendVerifyCode issues a code for purpose to identifier and hands it to the
// configured sender.
//
// The purpose decides what must be true of the account first: a login-reset
// code needs an existing account, register and change codes need a free
// identifier. An unexpired code is reused rather than replaced.
//
// Rejections by the throttles return a *RateLimitError. With synchronous
// delivery a sender failure is reported in SendCodeResult.DeliveryErr and the
// call itself succeeds.
func (e *Engine) SendVerifyCode(ctx context.Context, purpose Purpose, identifier string) (*SendCodeResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	identifier = strings.TrimSpace(identifier)
	res, err := e.flows.SendCode(ctx, purpose, identifier)
	if err != nil {
		return nil, err
	}

	out := &SendCodeResult{
		Purpose:     purpose,
		Channel:     res.Channel,
		ExpiresIn:   res.ExpiresIn,
		Reused:      res.Reused,
		DeliveryErr: res.DeliveryErr,
	}
	if e.config.Codes.DebugEcho {
		out.DebugCode = res.Code
	}
	return out, nil
}
