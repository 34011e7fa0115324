package goVerify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/internal"
	"github.com/MrEthical07/goVerify/jwt"
)

// Config is the full engine configuration. Build it from [DefaultConfig],
// adjust the sections you need and hand it to [Builder.WithConfig].
//
// A Config is copied on Build; later changes to the caller's value have no
// effect on a built [Engine].
type Config struct {
	Codes    CodesConfig
	Token    TokenConfig
	Password PasswordConfig
	Throttle ThrottleConfig
	Delivery DeliveryConfig
	Store    StoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	// ProductionMode tightens validation: no debug code echo and stronger
	// signing and hashing parameters.
	ProductionMode bool
}

/*
====================================
CODES CONFIG
====================================
*/

// CodesConfig shapes verification codes.
type CodesConfig struct {
	TTL      time.Duration
	Length   int
	Purposes []codes.Purpose
	// KeyDomain overrides the per-channel "sms_code" / "email_code" domains.
	KeyDomain string
	// DebugEcho returns the issued code to the caller of SendVerifyCode.
	// Development only; rejected in ProductionMode.
	DebugEcho bool
	Titles    map[codes.Purpose]string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls session token signing.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default), "ed25519" or "rs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Subject       string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and password policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig bounds code sends and failed logins. The Redis windows and
// the login limiter need a Redis client; the local limiter works with any store.
// Zero send limits and a zero Cooldown leave code sends unthrottled, which is
// the default. Enabled alone only turns on the failed-login limiter.
type ThrottleConfig struct {
	Enabled          bool
	IdentifierLimit  int
	IdentifierWindow time.Duration
	IPLimit          int
	IPWindow         time.Duration
	Cooldown         time.Duration

	// LocalInterval > 0 adds an in-process token bucket per identifier.
	LocalInterval time.Duration
	LocalBurst    int

	EnableIPLoginThrottle bool
	MaxLoginAttempts      int
	LoginCooldown         time.Duration
	Prefix                string
}

// DeliveryConfig controls how codes reach the sender.
type DeliveryConfig struct {
	Synchronous bool
	Timeout     time.Duration
	BufferSize  int
	Workers     int
	DropIfFull  bool
}

// StoreConfig namespaces keys in a shared Redis.
type StoreConfig struct {
	KeyPrefix string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the defaults Build starts from when WithConfig is not called.
// Token.PrivateKey is empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Codes: CodesConfig{
			TTL:      900 * time.Second,
			Length:   6,
			Purposes: codes.DefaultPurposes(),
			Titles:   codes.DefaultTitles(),
		},
		Token: TokenConfig{
			TTL:           24 * time.Hour,
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "lumen-im",
			Audience:      "user",
			Subject:       "Authorized login",
			Leeway:        0,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      6,
			MaxLength:      64,
			UpgradeOnLogin: true,
		},
		Throttle: ThrottleConfig{
			Enabled: true,
			// send-code windows are opt-in; a resend reuses the stored code
			IdentifierLimit:       0,
			IdentifierWindow:      time.Hour,
			IPLimit:               0,
			IPWindow:              time.Hour,
			Cooldown:              0,
			EnableIPLoginThrottle: true,
			MaxLoginAttempts:      5,
			LoginCooldown:         15 * time.Minute,
			Prefix:                "gv",
		},
		Delivery: DeliveryConfig{
			Synchronous: false,
			Timeout:     10 * time.Second,
			BufferSize:  256,
			Workers:     2,
			DropIfFull:  true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if cfg.Codes.Purposes != nil {
		out.Codes.Purposes = append([]codes.Purpose(nil), cfg.Codes.Purposes...)
	}
	if cfg.Codes.Titles != nil {
		out.Codes.Titles = make(map[codes.Purpose]string, len(cfg.Codes.Titles))
		for k, v := range cfg.Codes.Titles {
			out.Codes.Titles[k] = v
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) codesConfig() codes.Config {
	return codes.Config{
		TTL:                 c.Codes.TTL,
		Length:              c.Codes.Length,
		Purposes:            c.Codes.Purposes,
		KeyDomain:           c.Codes.KeyDomain,
		Titles:              c.Codes.Titles,
		SynchronousDelivery: c.Delivery.Synchronous,
		DeliveryTimeout:     c.Delivery.Timeout,
		DeliveryBufferSize:  c.Delivery.BufferSize,
		DeliveryWorkers:     c.Delivery.Workers,
		DeliveryDropIfFull:  c.Delivery.DropIfFull,
	}
}

func (c *Config) tokenConfig() (jwt.Config, error) {
	method, err := jwt.ParseSigningMethod(c.Token.SigningMethod)
	if err != nil {
		return jwt.Config{}, err
	}
	return jwt.Config{
		TTL:           c.Token.TTL,
		SigningMethod: method,
		PrivateKey:    cloneBytes(c.Token.PrivateKey),
		PublicKey:     cloneBytes(c.Token.PublicKey),
		Issuer:        c.Token.Issuer,
		Audience:      c.Token.Audience,
		Subject:       c.Token.Subject,
		Leeway:        c.Token.Leeway,
		KeyID:         c.Token.KeyID,
	}, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem it finds.
func (c *Config) Validate() error {
	// Codes
	if c.Codes.TTL <= 0 {
		return errors.New("Codes TTL must be > 0")
	}
	if !internal.ValidCodeDigits(c.Codes.Length) {
		return errors.New("Codes Length must be between 4 and 10")
	}
	if len(c.Codes.Purposes) == 0 {
		return errors.New("Codes Purposes must not be empty")
	}
	if strings.ContainsRune(c.Codes.KeyDomain, ':') {
		return errors.New("Codes KeyDomain must not contain ':'")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	method, err := jwt.ParseSigningMethod(c.Token.SigningMethod)
	if err != nil {
		return err
	}
	switch method {
	case jwt.MethodHS256:
		if len(c.Token.PrivateKey) < 32 {
			return errors.New("hs256 requires PrivateKey of at least 32 bytes")
		}
	case jwt.MethodEd25519, jwt.MethodRS256:
		if len(c.Token.PrivateKey) == 0 {
			return fmt.Errorf("%s requires PrivateKey", method)
		}
		if len(c.Token.PublicKey) == 0 {
			return fmt.Errorf("%s requires PublicKey", method)
		}
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}
	if strings.TrimSpace(c.Token.Subject) == "" {
		return errors.New("Token Subject must not be empty")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.IdentifierLimit < 0 || c.Throttle.IPLimit < 0 {
			return errors.New("Throttle limits must be >= 0")
		}
		if c.Throttle.IdentifierLimit > 0 && c.Throttle.IdentifierWindow <= 0 {
			return errors.New("Throttle IdentifierWindow must be > 0 when IdentifierLimit is set")
		}
		if c.Throttle.IPLimit > 0 && c.Throttle.IPWindow <= 0 {
			return errors.New("Throttle IPWindow must be > 0 when IPLimit is set")
		}
		if c.Throttle.Cooldown < 0 {
			return errors.New("Throttle Cooldown must be >= 0")
		}
		if c.Throttle.MaxLoginAttempts <= 0 {
			return errors.New("Throttle MaxLoginAttempts must be > 0")
		}
		if c.Throttle.LoginCooldown <= 0 {
			return errors.New("Throttle LoginCooldown must be > 0")
		}
	}
	if c.Throttle.LocalInterval < 0 {
		return errors.New("Throttle LocalInterval must be >= 0")
	}
	if c.Throttle.LocalInterval > 0 && c.Throttle.LocalBurst <= 0 {
		return errors.New("Throttle LocalBurst must be > 0 when LocalInterval is set")
	}

	// Delivery
	if c.Delivery.Timeout < 0 {
		return errors.New("Delivery Timeout must be >= 0")
	}
	if !c.Delivery.Synchronous && c.Delivery.BufferSize <= 0 {
		return errors.New("Delivery BufferSize must be > 0 for async delivery")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	if c.ProductionMode {
		if c.Codes.DebugEcho {
			return errors.New("ProductionMode forbids Codes DebugEcho")
		}
		if c.Codes.Length < 6 {
			return errors.New("ProductionMode requires Codes Length >= 6")
		}
		if c.Codes.TTL > 30*time.Minute {
			return errors.New("ProductionMode requires Codes TTL <= 30m")
		}
		if !c.Throttle.Enabled {
			return errors.New("ProductionMode requires Throttle Enabled")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if c.Password.MinLength < 6 {
			return errors.New("ProductionMode requires Password MinLength >= 6")
		}
	}

	return nil
}
