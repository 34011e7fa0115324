package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goVerify/codes"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	SendCode         SendCodeDeps
	Register         RegisterDeps
	Login            LoginDeps
	Reset            ResetDeps
	Logout           LogoutDeps
	ChangeIdentifier ChangeIdentifierDeps
	Validate         ValidateDeps
}

// UserRecord is the flow-local account model.
type UserRecord struct {
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

// NewUserInput is handed to the host CreateUser hook.
type NewUserInput struct {
	Identifier   string
	Mobile       string
	Email        string
	PasswordHash string
	Nickname     string
}

// CodeStore is the part of codes.Manager the flows drive.
type CodeStore interface {
	Send(ctx context.Context, p codes.Purpose, identifier string) (codes.SendResult, error)
	Check(ctx context.Context, p codes.Purpose, identifier, candidate string) (bool, error)
	Delete(ctx context.Context, p codes.Purpose, identifier string) error
}

// LookupUserFunc returns found=false, err=nil when no account matches.
type LookupUserFunc func(ctx context.Context, identifier string) (UserRecord, bool, error)

// EmitAuditFunc receives one audit record. metadata is evaluated lazily so
// disabled auditing costs nothing.
type EmitAuditFunc func(ctx context.Context, event string, success bool, userID, identifier string, err error, metadata func() map[string]string)

func noopMetricInc(int) {}

func noopEmitAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func identityError(err error) error { return err }
