package goVerify

import (
	"errors"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	internalaudit "github.com/MrEthical07/goVerify/internal/audit"
	"github.com/MrEthical07/goVerify/internal/flows"
	"github.com/MrEthical07/goVerify/internal/limiters"
	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/MrEthical07/goVerify/jwt"
	"github.com/MrEthical07/goVerify/kvstore"
	"github.com/MrEthical07/goVerify/password"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  kvstore.KeyedTTLStore

	userProvider UserProvider
	sender       codes.Sender
	throttle     codes.Throttle
	auditSink    AuditSink
	logger       logrus.FieldLogger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing codes, the token blacklist and all
// Redis throttles. Keys are namespaced by Store.KeyPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets the key/value store for codes and the blacklist. It takes
// precedence over the store derived from WithRedis; the Redis client is still
// used for throttling.
func (b *Builder) WithStore(store kvstore.KeyedTTLStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithSender sets the code delivery backend. Without one, codes are stored
// but never delivered; see the delivery package for real senders.
func (b *Builder) WithSender(s codes.Sender) *Builder {
	b.sender = s
	return b
}

// WithThrottle adds a caller-supplied throttle after the built-in ones.
func (b *Builder) WithThrottle(t codes.Throttle) *Builder {
	b.throttle = t
	return b
}

// WithAuditSink sets where audit events go. A non-nil sink turns auditing on
// regardless of Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides time.Now. Tests only.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be
// built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.auditSink != nil {
		// a supplied sink always receives events
		cfg.Audit.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("store or redis client required")
		}
		store = kvstore.NewRedis(b.redis, cfg.Store.KeyPrefix)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	engine := &Engine{
		config:       cfg,
		userProvider: b.userProvider,
		metrics:      NewMetrics(cfg.Metrics),
		log:          log,
		now:          now,
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxLength * 4,
	})
	if err != nil {
		return nil, err
	}
	engine.passwords = hasher

	// -------- TOKENS --------
	tokenCfg, err := cfg.tokenConfig()
	if err != nil {
		return nil, err
	}
	issuer, err := jwt.NewIssuer(tokenCfg)
	if err != nil {
		return nil, err
	}
	engine.issuer = issuer.WithClock(now)
	engine.blacklist = jwt.NewBlacklist(store, now)

	// -------- THROTTLES --------
	var throttles []codes.Throttle
	if cfg.Throttle.LocalInterval > 0 {
		throttles = append(throttles, limiters.NewLocal(cfg.Throttle.LocalInterval, cfg.Throttle.LocalBurst))
	}
	if cfg.Throttle.Enabled && b.redis != nil {
		throttles = append(throttles, limiters.NewSendCode(b.redis, limiters.SendCodeConfig{
			IdentifierLimit:  cfg.Throttle.IdentifierLimit,
			IdentifierWindow: cfg.Throttle.IdentifierWindow,
			IPLimit:          cfg.Throttle.IPLimit,
			IPWindow:         cfg.Throttle.IPWindow,
			Cooldown:         cfg.Throttle.Cooldown,
			Prefix:           cfg.Throttle.Prefix,
		}))
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Throttle.EnableIPLoginThrottle,
			MaxLoginAttempts:      cfg.Throttle.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Throttle.LoginCooldown,
			Prefix:                cfg.Throttle.Prefix,
		})
	} else if cfg.Throttle.Enabled {
		log.Warn("throttling enabled without a redis client; only the local limiter applies")
	}
	if b.throttle != nil {
		throttles = append(throttles, b.throttle)
	}

	// -------- CODES --------
	manager, err := codes.NewManager(cfg.codesConfig(), codes.Deps{
		Store:      store,
		Throttle:   codes.Chain(throttles...),
		Sender:     b.sender,
		Logger:     log,
		ClientIP:   clientIPFromContext,
		OnDelivery: engine.onDelivery,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	engine.codes = manager

	// -------- AUDIT --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.flows = flows.New(engine.buildFlowDeps())

	b.built = true

	return engine, nil
}
