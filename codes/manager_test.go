package codes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goVerify/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []Delivery
	fail  error
	calls int
}

func (s *recordingSender) Deliver(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.sent = append(s.sent, d)
	return s.fail
}

func (s *recordingSender) deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.sent))
	copy(out, s.sent)
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func syncConfig() Config {
	cfg := DefaultConfig()
	cfg.SynchronousDelivery = true
	return cfg
}

func newTestManager(t *testing.T, cfg Config, deps Deps) (*Manager, *kvstore.Memory, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	store := kvstore.NewMemory().WithClock(clock.Now)
	if deps.Store == nil {
		deps.Store = store
	}
	if deps.Now == nil {
		deps.Now = clock.Now
	}

	m, err := NewManager(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, store, clock
}

func TestSendThenCheck(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, syncConfig(), Deps{})

	for _, p := range DefaultPurposes() {
		for _, id := range []string{"+861234567890", "alice@example.com"} {
			res, err := m.Send(ctx, p, id)
			require.NoError(t, err)
			require.Len(t, res.Code, 6)

			ok, err := m.Check(ctx, p, id, res.Code)
			require.NoError(t, err)
			assert.True(t, ok, "%s/%s", p, id)

			wrong := "000000"
			if res.Code == wrong {
				wrong = "111111"
			}
			ok, err = m.Check(ctx, p, id, wrong)
			require.NoError(t, err)
			assert.False(t, ok)
		}
	}
}

func TestRegisterScenario(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t, syncConfig(), Deps{})

	const id = "+861234567890"
	require.NoError(t, store.SetWithTTL(ctx, "sms_code:user_register:"+id, "583920", 900*time.Second))

	res, err := m.Send(ctx, PurposeRegister, id)
	require.NoError(t, err)
	assert.Equal(t, "583920", res.Code)
	assert.True(t, res.Reused)

	ok, err := m.Check(ctx, PurposeRegister, id, "583920")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Check(ctx, PurposeRegister, id, "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Delete(ctx, PurposeRegister, id))

	ok, err = m.Check(ctx, PurposeRegister, id, "583920")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResendReusesCodeAndRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	m, store, clock := newTestManager(t, syncConfig(), Deps{})

	first, err := m.Send(ctx, PurposeLoginReset, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, first.Reused)

	clock.Advance(10 * time.Minute)

	second, err := m.Send(ctx, PurposeLoginReset, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Code, second.Code)

	ttl, err := store.TTL(ctx, "email_code:forget_password:bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 900*time.Second, ttl)
}

func TestCodeExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t, syncConfig(), Deps{})

	res, err := m.Send(ctx, PurposeRegister, "+15550001111")
	require.NoError(t, err)

	clock.Advance(900 * time.Second)

	ok, err := m.Check(ctx, PurposeRegister, "+15550001111", res.Code)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := m.Send(ctx, PurposeRegister, "+15550001111")
	require.NoError(t, err)
	assert.False(t, again.Reused)
}

func TestPurposesAreIsolated(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, syncConfig(), Deps{})

	res, err := m.Send(ctx, PurposeRegister, "+15550002222")
	require.NoError(t, err)

	ok, err := m.Check(ctx, PurposeLoginReset, "+15550002222", res.Code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownPurposeAndEmptyIdentifier(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, syncConfig(), Deps{})

	_, err := m.Send(ctx, Purpose("bogus"), "+15550003333")
	assert.ErrorIs(t, err, ErrUnknownPurpose)

	_, err = m.Check(ctx, Purpose("bogus"), "+15550003333", "123456")
	assert.ErrorIs(t, err, ErrUnknownPurpose)

	assert.ErrorIs(t, m.Delete(ctx, Purpose("bogus"), "+15550003333"), ErrUnknownPurpose)

	_, err = m.Send(ctx, PurposeRegister, "   ")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	ok, err := m.Check(ctx, PurposeRegister, "+15550003333", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	m, _, _ := newTestManager(t, syncConfig(), Deps{})
	assert.NoError(t, m.Delete(context.Background(), PurposeChangeEmail, "nobody@example.com"))
}

func TestStoreFailureIsNotAVerdict(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	m, _, _ := newTestManager(t, syncConfig(), Deps{Store: store})

	res, err := m.Send(ctx, PurposeRegister, "+15550004444")
	require.NoError(t, err)

	store.FailWith(errors.New("connection refused"))

	ok, err := m.Check(ctx, PurposeRegister, "+15550004444", res.Code)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, ok)

	_, err = m.Send(ctx, PurposeRegister, "+15550004444")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.ErrorIs(t, m.Delete(ctx, PurposeRegister, "+15550004444"), ErrStoreUnavailable)
}

func TestThrottleRejectionReturnsReason(t *testing.T) {
	ctx := context.Background()
	throttle := ThrottleFunc(func(_ context.Context, req Request) error {
		if req.ClientIP == "203.0.113.9" {
			return &ThrottleError{Reason: "ip_window", RetryAfter: time.Minute}
		}
		return nil
	})
	type ipKey struct{}
	m, store, _ := newTestManager(t, syncConfig(), Deps{
		Throttle: throttle,
		ClientIP: func(ctx context.Context) string {
			ip, _ := ctx.Value(ipKey{}).(string)
			return ip
		},
	})

	blocked := context.WithValue(ctx, ipKey{}, "203.0.113.9")
	_, err := m.Send(blocked, PurposeRegister, "+15550005555")
	require.ErrorIs(t, err, ErrThrottled)

	var te *ThrottleError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "ip_window", te.Reason)
	assert.Equal(t, time.Minute, te.RetryAfter)
	assert.Equal(t, 0, store.Len())

	_, err = m.Send(ctx, PurposeRegister, "+15550005555")
	assert.NoError(t, err)
}

func TestThrottleBackendFailureIsStoreUnavailable(t *testing.T) {
	throttle := ThrottleFunc(func(context.Context, Request) error {
		return errors.New("redis down")
	})
	m, _, _ := newTestManager(t, syncConfig(), Deps{Throttle: throttle})

	_, err := m.Send(context.Background(), PurposeRegister, "+15550006666")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrThrottled)
}

func TestSynchronousDeliveryFailureKeepsCode(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{fail: errors.New("smtp 421")}

	var (
		mu       sync.Mutex
		outcomes []error
	)
	m, _, _ := newTestManager(t, syncConfig(), Deps{
		Sender: sender,
		OnDelivery: func(_ Delivery, err error) {
			mu.Lock()
			outcomes = append(outcomes, err)
			mu.Unlock()
		},
	})

	res, err := m.Send(ctx, PurposeChangeEmail, "carol@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, res.DeliveryErr, ErrDeliveryFailed)

	ok, err := m.Check(ctx, PurposeChangeEmail, "carol@example.com", res.Code)
	require.NoError(t, err)
	assert.True(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0], ErrDeliveryFailed)
}

func TestAsyncDeliveryCarriesMessage(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	m, _, _ := newTestManager(t, DefaultConfig(), Deps{Sender: sender})

	res, err := m.Send(ctx, PurposeChangeMobile, "+15550007777")
	require.NoError(t, err)
	assert.True(t, res.DeliveryQueued)
	assert.Nil(t, res.DeliveryErr)

	m.Close()

	sent := sender.deliveries()
	require.Len(t, sent, 1)
	d := sent[0]
	assert.Equal(t, PurposeChangeMobile, d.Purpose)
	assert.Equal(t, ChannelSMS, d.Channel)
	assert.Equal(t, "+15550007777", d.Identifier)
	assert.Equal(t, res.Code, d.Code)
	assert.Equal(t, "Change mobile number", d.Title)
	assert.Equal(t, 900*time.Second, d.TTL)
	assert.NotEmpty(t, d.ID)
}

func TestKeyDomainOverride(t *testing.T) {
	ctx := context.Background()
	cfg := syncConfig()
	cfg.KeyDomain = "verify"
	m, store, _ := newTestManager(t, cfg, Deps{})

	res, err := m.Send(ctx, PurposeRegister, "dave@example.com")
	require.NoError(t, err)

	v, found, err := store.Get(ctx, "verify:user_register:dave@example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, res.Code, v)
}

func TestCustomPurposeSetAndLength(t *testing.T) {
	ctx := context.Background()
	cfg := syncConfig()
	cfg.Purposes = []Purpose{"device_link"}
	cfg.Length = 8
	m, _, _ := newTestManager(t, cfg, Deps{})

	assert.False(t, m.Recognized(PurposeRegister))

	res, err := m.Send(ctx, "device_link", "+15550008888")
	require.NoError(t, err)
	assert.Len(t, res.Code, 8)
}

func TestMalformedStoredCodeIsReplaced(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t, syncConfig(), Deps{})

	require.NoError(t, store.SetWithTTL(ctx, "sms_code:user_register:+15550009999", "abc", time.Minute))

	res, err := m.Send(ctx, PurposeRegister, "+15550009999")
	require.NoError(t, err)
	assert.False(t, res.Reused)
	assert.Len(t, res.Code, 6)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero ttl":         func(c *Config) { c.TTL = 0 },
		"short length":     func(c *Config) { c.Length = 3 },
		"long length":      func(c *Config) { c.Length = 11 },
		"no purposes":      func(c *Config) { c.Purposes = nil },
		"empty purpose":    func(c *Config) { c.Purposes = []Purpose{""} },
		"colon in purpose": func(c *Config) { c.Purposes = []Purpose{"a:b"} },
		"colon in domain":  func(c *Config) { c.KeyDomain = "x:y" },
		"negative timeout": func(c *Config) { c.DeliveryTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())

	_, err := NewManager(DefaultConfig(), Deps{})
	assert.Error(t, err, "store is required")
}

func TestConcurrentSendsKeepOneActiveCode(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t, syncConfig(), Deps{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Send(ctx, PurposeRegister, "+15550001234")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	v, found, err := store.Get(ctx, "sms_code:user_register:+15550001234")
	require.NoError(t, err)
	require.True(t, found)

	ok, err := m.Check(ctx, PurposeRegister, "+15550001234", v)
	require.NoError(t, err)
	assert.True(t, ok)
}
