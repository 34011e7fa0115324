//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/userstore/sqlite"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
)

// cmdCounter is a go-redis Hook that counts Redis round-trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		// one pipeline is one round-trip regardless of command count
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

func integrationConfig() goVerify.Config {
	cfg := goVerify.DefaultConfig()
	cfg.Token.PrivateKey = []byte("integration-signing-key-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Delivery.Synchronous = true
	cfg.Codes.DebugEcho = true
	return cfg
}

// newEngine builds an engine over addr and users. When counter is non-nil
// it is installed on the client after a warm-up PING.
func newEngine(t *testing.T, addr string, users goVerify.UserProvider, counter *cmdCounter) *goVerify.Engine {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	if counter != nil {
		rdb.AddHook(counter)
	}

	logger, _ := test.NewNullLogger()
	engine, err := goVerify.New().
		WithConfig(integrationConfig()).
		WithRedis(rdb).
		WithUserProvider(users).
		WithSender(codes.DiscardSender{}).
		WithLogger(logger).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newBackends(t *testing.T) (*miniredis.Miniredis, *sqlite.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	users, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open user store: %v", err)
	}
	t.Cleanup(func() { _ = users.Close() })
	return mr, users
}

// registerAndLogin creates an account through the engine and returns a token.
func registerAndLogin(t *testing.T, engine *goVerify.Engine, identifier string) string {
	t.Helper()
	ctx := context.Background()

	sent, err := engine.SendVerifyCode(ctx, goVerify.PurposeRegister, identifier)
	if err != nil {
		t.Fatalf("send code: %v", err)
	}
	if _, err := engine.Register(ctx, goVerify.RegisterRequest{
		Identifier: identifier,
		Password:   "integration-pass",
		Code:       sent.DebugCode,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	res, err := engine.Login(ctx, identifier, "integration-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res.AccessToken
}
