package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/jwt"
	"github.com/MrEthical07/goVerify/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errNotReady     = errors.New("not ready")
	errNotFound     = errors.New("user not found")
	errExists       = errors.New("account exists")
	errDuplicate    = errors.New("duplicate")
	errCodeInvalid  = errors.New("code invalid")
	errInvalidCreds = errors.New("invalid credentials")
	errRateLimited  = errors.New("rate limited")
	errBadRequest   = errors.New("bad request")
	errBadID        = errors.New("bad identifier")
	errRevoked      = errors.New("revoked")
	errMalformed    = errors.New("malformed")
)

func newCodes(t *testing.T) *codes.Manager {
	t.Helper()
	cfg := codes.DefaultConfig()
	cfg.SynchronousDelivery = true
	m, err := codes.NewManager(cfg, codes.Deps{Store: kvstore.NewMemory()})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

type userTable map[string]UserRecord

func (u userTable) lookup(_ context.Context, identifier string) (UserRecord, bool, error) {
	rec, ok := u[identifier]
	return rec, ok, nil
}

type metricRecorder map[int]int

func (m metricRecorder) inc(id int) { m[id]++ }

func TestRunSendCodeAccountPrechecks(t *testing.T) {
	users := userTable{"a@example.com": {UserID: "u1", Identifier: "a@example.com"}}
	deps := SendCodeDeps{
		Codes:              newCodes(t),
		ValidateIdentifier: func(string) error { return nil },
		LookupUser:         users.lookup,
		Errors: SendCodeErrors{
			EngineNotReady: errNotReady,
			UserNotFound:   errNotFound,
			AccountExists:  errExists,
		},
	}
	ctx := context.Background()

	_, err := RunSendCode(ctx, codes.PurposeRegister, "a@example.com", deps)
	assert.ErrorIs(t, err, errExists)

	_, err = RunSendCode(ctx, codes.PurposeLoginReset, "b@example.com", deps)
	assert.ErrorIs(t, err, errNotFound)

	res, err := RunSendCode(ctx, codes.PurposeLoginReset, "a@example.com", deps)
	require.NoError(t, err)
	assert.Len(t, res.Code, 6)
	assert.Equal(t, codes.ChannelEmail, res.Channel)

	res, err = RunSendCode(ctx, codes.PurposeRegister, "  b@example.com ", deps)
	require.NoError(t, err)
	assert.False(t, res.Reused)
}

func TestRunSendCodeNotWired(t *testing.T) {
	_, err := RunSendCode(context.Background(), codes.PurposeRegister, "x", SendCodeDeps{
		Errors: SendCodeErrors{EngineNotReady: errNotReady},
	})
	assert.ErrorIs(t, err, errNotReady)
}

func registerDeps(t *testing.T, cm *codes.Manager, users userTable, created *int) RegisterDeps {
	return RegisterDeps{
		Codes:        cm,
		LookupUser:   users.lookup,
		HashPassword: func(p string) (string, error) { return "hash:" + p, nil },
		CreateUser: func(_ context.Context, in NewUserInput) (UserRecord, error) {
			*created++
			rec := UserRecord{
				UserID:       "u-new",
				Identifier:   in.Identifier,
				Mobile:       in.Mobile,
				Email:        in.Email,
				PasswordHash: in.PasswordHash,
				Nickname:     in.Nickname,
			}
			users[in.Identifier] = rec
			return rec, nil
		},
		Errors: RegisterErrors{
			EngineNotReady:              errNotReady,
			CodeInvalid:                 errCodeInvalid,
			AccountExists:               errExists,
			ProviderDuplicateIdentifier: errDuplicate,
		},
	}
}

func TestRunRegisterFailedCheckNeverCreates(t *testing.T) {
	cm := newCodes(t)
	ctx := context.Background()
	created := 0
	metrics := metricRecorder{}
	deps := registerDeps(t, cm, userTable{}, &created)
	deps.MetricInc = metrics.inc
	deps.Metrics = RegisterMetrics{CodeCheckFailure: 7}

	res, err := cm.Send(ctx, codes.PurposeRegister, "+8613800138000")
	require.NoError(t, err)

	wrong := "000000"
	if res.Code == wrong {
		wrong = "111111"
	}
	_, err = RunRegister(ctx, RegisterRequest{Identifier: "+8613800138000", Password: "secret1", Code: wrong}, deps)
	assert.ErrorIs(t, err, errCodeInvalid)
	assert.Zero(t, created)
	assert.Equal(t, 1, metrics[7])

	_, err = RunRegister(ctx, RegisterRequest{Identifier: "+8613800138000", Password: "secret1"}, deps)
	assert.ErrorIs(t, err, errCodeInvalid)

	// The original code survives a failed attempt.
	ok, err := cm.Check(ctx, codes.PurposeRegister, "+8613800138000", res.Code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunRegisterCreatesThenDeletesCode(t *testing.T) {
	cm := newCodes(t)
	ctx := context.Background()
	created := 0
	users := userTable{}
	deps := registerDeps(t, cm, users, &created)

	res, err := cm.Send(ctx, codes.PurposeRegister, "+8613800138000")
	require.NoError(t, err)

	user, err := RunRegister(ctx, RegisterRequest{
		Identifier: "+8613800138000",
		Password:   "secret1",
		Nickname:   " lumen ",
		Code:       res.Code,
	}, deps)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, "+8613800138000", user.Mobile)
	assert.Empty(t, user.Email)
	assert.Equal(t, "lumen", user.Nickname)
	assert.Equal(t, "hash:secret1", user.PasswordHash)

	ok, err := cm.Check(ctx, codes.PurposeRegister, "+8613800138000", res.Code)
	require.NoError(t, err)
	assert.False(t, ok, "code must be consumed after registration")
}

func TestRunRegisterDuplicateFromProvider(t *testing.T) {
	cm := newCodes(t)
	ctx := context.Background()
	created := 0
	deps := registerDeps(t, cm, userTable{}, &created)
	deps.CreateUser = func(context.Context, NewUserInput) (UserRecord, error) {
		return UserRecord{}, errDuplicate
	}

	res, err := cm.Send(ctx, codes.PurposeRegister, "a@example.com")
	require.NoError(t, err)

	_, err = RunRegister(ctx, RegisterRequest{Identifier: "a@example.com", Password: "secret1", Code: res.Code}, deps)
	assert.ErrorIs(t, err, errExists)
}

func loginDeps(users userTable) LoginDeps {
	return LoginDeps{
		LookupUser: users.lookup,
		VerifyPassword: func(password, hash string) (bool, error) {
			return hash == "hash:"+password || hash == "legacy:"+password, nil
		},
		NeedsUpgrade: func(hash string) bool { return len(hash) > 7 && hash[:7] == "legacy:" },
		HashPassword: func(p string) (string, error) { return "hash:" + p, nil },
		UpdatePasswordHash: func(_ context.Context, userID, hash string) error {
			for k, u := range users {
				if u.UserID == userID {
					u.PasswordHash = hash
					users[k] = u
				}
			}
			return nil
		},
		UpgradeOnLogin: true,
		IssueToken: func(u UserRecord) (string, string, time.Duration, error) {
			return "token-for-" + u.UserID, "jti-1", time.Hour, nil
		},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			UserNotFound:       errNotFound,
			InvalidCredentials: errInvalidCreds,
			RateLimited:        errRateLimited,
		},
	}
}

func TestRunLogin(t *testing.T) {
	users := userTable{"a@example.com": {UserID: "u1", Identifier: "a@example.com", PasswordHash: "legacy:secret1", Nickname: "a"}}
	ctx := context.Background()
	failures := 0
	deps := loginDeps(users)
	deps.RecordLoginFailure = func(context.Context, string, string) error {
		failures++
		return nil
	}

	_, err := RunLogin(ctx, "nobody@example.com", "secret1", deps)
	assert.ErrorIs(t, err, errNotFound)

	_, err = RunLogin(ctx, "a@example.com", "wrong", deps)
	assert.ErrorIs(t, err, errInvalidCreds)
	assert.Equal(t, 2, failures)

	res, err := RunLogin(ctx, "a@example.com", "secret1", deps)
	require.NoError(t, err)
	assert.Equal(t, "token-for-u1", res.AccessToken)
	assert.Equal(t, time.Hour, res.ExpiresIn)
	assert.Empty(t, res.User.PasswordHash)
	assert.Equal(t, "hash:secret1", users["a@example.com"].PasswordHash, "legacy hash upgraded")
}

func TestRunLoginRateLimited(t *testing.T) {
	deps := loginDeps(userTable{})
	deps.CheckLoginLimit = func(context.Context, string, string) error { return errRateLimited }
	metrics := metricRecorder{}
	deps.MetricInc = metrics.inc
	deps.Metrics = LoginMetrics{LoginRateLimited: 3}

	_, err := RunLogin(context.Background(), "a@example.com", "secret1", deps)
	assert.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, 1, metrics[3])
}

func TestRunChangeIdentifier(t *testing.T) {
	cm := newCodes(t)
	ctx := context.Background()
	var updated string
	deps := ChangeIdentifierDeps{
		Codes: cm,
		UpdateIdentifier: func(_ context.Context, userID string, p codes.Purpose, identifier string) error {
			updated = userID + "=" + identifier
			return nil
		},
		Errors: ChangeIdentifierErrors{
			EngineNotReady:              errNotReady,
			InvalidRequest:              errBadRequest,
			InvalidIdentifier:           errBadID,
			CodeInvalid:                 errCodeInvalid,
			AccountExists:               errExists,
			ProviderDuplicateIdentifier: errDuplicate,
		},
	}

	err := RunChangeIdentifier(ctx, "u1", codes.PurposeRegister, "a@example.com", "123456", deps)
	assert.ErrorIs(t, err, errBadRequest)

	err = RunChangeIdentifier(ctx, "u1", codes.PurposeChangeMobile, "a@example.com", "123456", deps)
	assert.ErrorIs(t, err, errBadID)

	err = RunChangeIdentifier(ctx, "", codes.PurposeChangeEmail, "a@example.com", "123456", deps)
	assert.ErrorIs(t, err, errBadRequest)

	res, err := cm.Send(ctx, codes.PurposeChangeEmail, "new@example.com")
	require.NoError(t, err)
	require.NoError(t, RunChangeIdentifier(ctx, "u1", codes.PurposeChangeEmail, "new@example.com", res.Code, deps))
	assert.Equal(t, "u1=new@example.com", updated)

	ok, err := cm.Check(ctx, codes.PurposeChangeEmail, "new@example.com", res.Code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunValidateToken(t *testing.T) {
	revoked := map[string]bool{"gone": true}
	parse := func(raw string) (*jwt.Claims, error) {
		if raw == "bad" {
			return nil, errMalformed
		}
		c := &jwt.Claims{}
		c.ID = raw
		return c, nil
	}
	var observed int
	deps := ValidateDeps{
		ParseToken: parse,
		IsRevoked: func(_ context.Context, jti string) (bool, error) {
			if jti == "down" {
				return false, errors.New("redis down")
			}
			return revoked[jti], nil
		},
		ObserveLatency: func(time.Duration) { observed++ },
		Errors: ValidateErrors{
			EngineNotReady: errNotReady,
			TokenMalformed: errMalformed,
			TokenRevoked:   errRevoked,
		},
	}
	ctx := context.Background()

	claims, err := RunValidateToken(ctx, "live", deps)
	require.NoError(t, err)
	assert.Equal(t, "live", claims.TokenID())

	_, err = RunValidateToken(ctx, "gone", deps)
	assert.ErrorIs(t, err, errRevoked)

	_, err = RunValidateToken(ctx, "bad", deps)
	assert.ErrorIs(t, err, errMalformed)

	_, err = RunValidateToken(ctx, "down", deps)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errRevoked)

	_, err = RunValidateToken(ctx, "  ", deps)
	assert.ErrorIs(t, err, errMalformed)
	assert.Equal(t, 5, observed)
}

func TestRunLogoutRevokes(t *testing.T) {
	var revokedID string
	deps := LogoutDeps{
		ParseToken: func(raw string) (*jwt.Claims, error) {
			c := &jwt.Claims{}
			c.ID = raw
			return c, nil
		},
		Revoke: func(_ context.Context, c *jwt.Claims) (bool, error) {
			revokedID = c.TokenID()
			return true, nil
		},
		Errors: LogoutErrors{EngineNotReady: errNotReady, TokenMalformed: errMalformed},
	}

	require.NoError(t, RunLogout(context.Background(), "abc", deps))
	assert.Equal(t, "abc", revokedID)
	assert.ErrorIs(t, RunLogout(context.Background(), "", deps), errMalformed)
}
