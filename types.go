package goVerify

import (
	"context"
	"time"

	"github.com/MrEthical07/goVerify/codes"
)

// Purpose scopes a verification code. See the codes package for the
// built-in values.
type Purpose = codes.Purpose

const (
	PurposeRegister     = codes.PurposeRegister
	PurposeLoginReset   = codes.PurposeLoginReset
	PurposeChangeMobile = codes.PurposeChangeMobile
	PurposeChangeEmail  = codes.PurposeChangeEmail
)

// Account is a user as the engine sees it. Identifier is whichever of
// Mobile or Email the account was registered with.
type Account struct {
	UserID       string
	Identifier   string
	Mobile       string
	Email        string
	PasswordHash string
	Nickname     string
	Avatar       string
	Motto        string
	Gender       int
	CreatedAt    time.Time
}

// Profile is the public part of an [Account]. It never carries the password hash.
type Profile struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Motto    string `json:"motto"`
	Gender   int    `json:"gender"`
}

// Profile returns the public view of a.
func (a Account) Profile() Profile {
	return Profile{
		UID:      a.UserID,
		Nickname: a.Nickname,
		Avatar:   a.Avatar,
		Motto:    a.Motto,
		Gender:   a.Gender,
	}
}

// CreateUserInput is passed to [UserProvider.CreateUser]. Exactly one of
// Mobile or Email is set, matching Identifier.
type CreateUserInput struct {
	Identifier   string
	Mobile       string
	Email        string
	PasswordHash string
	Nickname     string
}

// UserProvider is implemented by the caller's user store. The userstore/sqlite
// package ships a reference implementation.
//
// FindByIdentifier returns ErrUserNotFound when no account matches.
// CreateUser and UpdateIdentifier return ErrProviderDuplicateIdentifier when
// the identifier is taken.
type UserProvider interface {
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)
	CreateUser(ctx context.Context, input CreateUserInput) (Account, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	UpdateIdentifier(ctx context.Context, userID string, purpose Purpose, identifier string) error
}

// RegisterRequest is the input of [Engine.Register].
type RegisterRequest struct {
	Identifier string `json:"identifier" validate:"required,identifier"`
	Password   string `json:"password" validate:"required"`
	Nickname   string `json:"nickname" validate:"omitempty,max=32"`
	Code       string `json:"code" validate:"required,numeric"`
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	Profile     Profile
}

// SendCodeResult is returned by [Engine.SendVerifyCode].
type SendCodeResult struct {
	Purpose   Purpose
	Channel   codes.Channel
	ExpiresIn time.Duration
	Reused    bool
	// DebugCode is the issued code, set only when Codes.DebugEcho is on.
	DebugCode string
	// DeliveryErr is set when synchronous delivery failed. It wraps
	// ErrDeliveryFailed; the code stays valid and a resend re-delivers it.
	DeliveryErr error
}
