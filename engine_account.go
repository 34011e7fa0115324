package goVerify

import (
	"context"
	"strings"

	"github.com/MrEthical07/goVerify/internal/flows"
)

// Register creates an account for req.Identifier once req.Code checks out
// against the register code sent to it. The code is consumed on success.
//
// The returned Account never carries the password hash.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	user, err := e.flows.Register(ctx, flows.RegisterRequest{
		Identifier: strings.TrimSpace(req.Identifier),
		Password:   req.Password,
		Nickname:   strings.TrimSpace(req.Nickname),
		Code:       strings.TrimSpace(req.Code),
	})
	if err != nil {
		return nil, err
	}

	acct := accountFromRecord(user)
	acct.PasswordHash = ""
	return &acct, nil
}

// Login checks identifier and password and issues a session token.
//
// An unknown identifier returns ErrUserNotFound and a wrong password
// ErrInvalidCredentials. Both count against the failed-login budget; once it
// is spent the call returns a *RateLimitError until the cooldown passes.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := e.flows.Login(ctx, strings.TrimSpace(identifier), password)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrEngineNotReady
	}

	return &LoginResult{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   res.ExpiresIn,
		Profile:     accountFromRecord(res.User).Profile(),
	}, nil
}

// ResetPassword sets a new password for the account behind identifier after
// checking code against the login-reset code sent to it. The code is
// consumed and the failed-login counter cleared on success.
func (e *Engine) ResetPassword(ctx context.Context, identifier, code, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.ResetPassword(ctx, strings.TrimSpace(identifier), strings.TrimSpace(code), newPassword)
}

// ChangeIdentifier binds newIdentifier to userID. purpose must be
// PurposeChangeMobile with a phone number or PurposeChangeEmail with an email
// address, and code must match the one sent to newIdentifier.
func (e *Engine) ChangeIdentifier(ctx context.Context, userID string, purpose Purpose, newIdentifier, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.ChangeIdentifier(ctx, userID, purpose, strings.TrimSpace(newIdentifier), strings.TrimSpace(code))
}
