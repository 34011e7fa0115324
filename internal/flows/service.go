package flows

import (
	"context"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.ParseToken != nil && s.deps.SendCode.Codes != nil
}

func (s Service) SendCode(ctx context.Context, p codes.Purpose, identifier string) (codes.SendResult, error) {
	return RunSendCode(ctx, p, identifier, s.deps.SendCode)
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (UserRecord, error) {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	return RunLogin(ctx, identifier, password, s.deps.Login)
}

func (s Service) ResetPassword(ctx context.Context, identifier, code, newPassword string) error {
	return RunResetPassword(ctx, identifier, code, newPassword, s.deps.Reset)
}

func (s Service) Logout(ctx context.Context, tokenStr string) error {
	return RunLogout(ctx, tokenStr, s.deps.Logout)
}

func (s Service) ChangeIdentifier(ctx context.Context, userID string, p codes.Purpose, identifier, code string) error {
	return RunChangeIdentifier(ctx, userID, p, identifier, code, s.deps.ChangeIdentifier)
}

func (s Service) ValidateToken(ctx context.Context, tokenStr string) (*jwt.Claims, error) {
	return RunValidateToken(ctx, tokenStr, s.deps.Validate)
}
