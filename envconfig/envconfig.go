package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "GOVERIFY_"

// Settings is everything a goverify-server process needs.
type Settings struct {
	Engine goVerify.Config
	Server ServerConfig
}

// ServerConfig holds the process-level settings that are not engine config.
type ServerConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"goVerify"`
	SiteURL         string        `env:"SITE_URL"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	// RedisAddr empty with DevRedis set starts an in-process miniredis.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
	DevRedis      bool   `env:"DEV_REDIS"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"goverify.db"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	TrustProxy  bool     `env:"TRUST_PROXY"`
	// HTTPRate is requests per second per client IP; zero disables it.
	HTTPRate  float64 `env:"HTTP_RATE" envDefault:"20"`
	HTTPBurst int     `env:"HTTP_BURST" envDefault:"40"`
	// DefaultCountryCode is prefixed to national phone numbers, e.g. "86".
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE"`

	MetricsExporter string `env:"METRICS_EXPORTER" envDefault:"prometheus"`
	ReportSchedule  string `env:"REPORT_SCHEDULE" envDefault:"@every 1m"`

	SendGrid SendGridEnv `envPrefix:"SENDGRID_"`
	Twilio   TwilioEnv   `envPrefix:"TWILIO_"`
	SNS      SNSEnv      `envPrefix:"SNS_"`
	Dynamo   DynamoEnv   `envPrefix:"DYNAMO_"`
}

// SendGridEnv configures email delivery. An empty APIKey disables it.
type SendGridEnv struct {
	APIKey    string `env:"API_KEY"`
	FromName  string `env:"FROM_NAME" envDefault:"goVerify"`
	FromEmail string `env:"FROM_EMAIL"`
	Sandbox   bool   `env:"SANDBOX"`
}

// TwilioEnv configures SMS delivery through Twilio.
type TwilioEnv struct {
	AccountSID string `env:"ACCOUNT_SID"`
	AuthToken  string `env:"AUTH_TOKEN"`
	FromPhone  string `env:"FROM_PHONE"`
}

// SNSEnv configures SMS delivery through AWS SNS. Used when Twilio is unset.
type SNSEnv struct {
	Region   string `env:"REGION"`
	SenderID string `env:"SENDER_ID"`
}

// DynamoEnv configures the audit sink. An empty Table disables it.
type DynamoEnv struct {
	Region    string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string        `env:"ENDPOINT"`
	Table     string        `env:"TABLE"`
	Retention time.Duration `env:"RETENTION" envDefault:"2160h"`
}

// engineEnv mirrors the tunable parts of goVerify.Config. It is prefilled
// from goVerify.DefaultConfig so unset variables keep the defaults.
type engineEnv struct {
	ProductionMode bool `env:"PRODUCTION_MODE"`

	CodeTTL       time.Duration `env:"CODE_TTL"`
	CodeLength    int           `env:"CODE_LENGTH"`
	CodeKeyDomain string        `env:"CODE_KEY_DOMAIN"`
	CodeDebugEcho bool          `env:"CODE_DEBUG_ECHO"`

	TokenTTL        time.Duration `env:"TOKEN_TTL"`
	TokenMethod     string        `env:"TOKEN_SIGNING_METHOD"`
	TokenPrivateKey string        `env:"TOKEN_PRIVATE_KEY"`
	TokenPrivFile   string        `env:"TOKEN_PRIVATE_KEY_FILE,file"`
	TokenPublicKey  string        `env:"TOKEN_PUBLIC_KEY"`
	TokenPubFile    string        `env:"TOKEN_PUBLIC_KEY_FILE,file"`
	TokenIssuer     string        `env:"TOKEN_ISSUER"`
	TokenAudience   string        `env:"TOKEN_AUDIENCE"`
	TokenLeeway     time.Duration `env:"TOKEN_LEEWAY"`
	TokenKeyID      string        `env:"TOKEN_KEY_ID"`

	PasswordMemory      uint32 `env:"PASSWORD_MEMORY_KB"`
	PasswordTime        uint32 `env:"PASSWORD_TIME"`
	PasswordParallelism uint8  `env:"PASSWORD_PARALLELISM"`
	PasswordMinLength   int    `env:"PASSWORD_MIN_LENGTH"`
	PasswordMaxLength   int    `env:"PASSWORD_MAX_LENGTH"`

	ThrottleEnabled  bool          `env:"THROTTLE_ENABLED"`
	IdentifierLimit  int           `env:"THROTTLE_IDENTIFIER_LIMIT"`
	IdentifierWindow time.Duration `env:"THROTTLE_IDENTIFIER_WINDOW"`
	IPLimit          int           `env:"THROTTLE_IP_LIMIT"`
	IPWindow         time.Duration `env:"THROTTLE_IP_WINDOW"`
	Cooldown         time.Duration `env:"THROTTLE_COOLDOWN"`
	LocalInterval    time.Duration `env:"THROTTLE_LOCAL_INTERVAL"`
	LocalBurst       int           `env:"THROTTLE_LOCAL_BURST"`
	MaxLoginAttempts int           `env:"LOGIN_MAX_ATTEMPTS"`
	LoginCooldown    time.Duration `env:"LOGIN_COOLDOWN"`

	DeliverySync    bool          `env:"DELIVERY_SYNC"`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT"`
	DeliveryWorkers int           `env:"DELIVERY_WORKERS"`
	DeliveryBuffer  int           `env:"DELIVERY_BUFFER"`

	StoreKeyPrefix string `env:"STORE_KEY_PREFIX"`

	AuditEnabled bool `env:"AUDIT_ENABLED"`
	AuditBuffer  int  `env:"AUDIT_BUFFER"`

	MetricsEnabled    bool `env:"METRICS_ENABLED"`
	MetricsHistograms bool `env:"METRICS_HISTOGRAMS"`
}

// Load reads .env (when present) and the environment.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnvironment()
}

// FromEnvironment parses the current environment without touching .env.
func FromEnvironment() (*Settings, error) {
	opts := env.Options{Prefix: Prefix}

	var server ServerConfig
	if err := env.ParseWithOptions(&server, opts); err != nil {
		return nil, fmt.Errorf("parse server env: %w", err)
	}

	cfg := goVerify.DefaultConfig()
	ee := fromConfig(cfg)
	if err := env.ParseWithOptions(&ee, opts); err != nil {
		return nil, fmt.Errorf("parse engine env: %w", err)
	}
	ee.apply(&cfg)

	return &Settings{Engine: cfg, Server: server}, nil
}

func fromConfig(cfg goVerify.Config) engineEnv {
	return engineEnv{
		ProductionMode: cfg.ProductionMode,

		CodeTTL:       cfg.Codes.TTL,
		CodeLength:    cfg.Codes.Length,
		CodeKeyDomain: cfg.Codes.KeyDomain,
		CodeDebugEcho: cfg.Codes.DebugEcho,

		TokenTTL:      cfg.Token.TTL,
		TokenMethod:   cfg.Token.SigningMethod,
		TokenIssuer:   cfg.Token.Issuer,
		TokenAudience: cfg.Token.Audience,
		TokenLeeway:   cfg.Token.Leeway,
		TokenKeyID:    cfg.Token.KeyID,

		PasswordMemory:      cfg.Password.Memory,
		PasswordTime:        cfg.Password.Time,
		PasswordParallelism: cfg.Password.Parallelism,
		PasswordMinLength:   cfg.Password.MinLength,
		PasswordMaxLength:   cfg.Password.MaxLength,

		ThrottleEnabled:  cfg.Throttle.Enabled,
		IdentifierLimit:  cfg.Throttle.IdentifierLimit,
		IdentifierWindow: cfg.Throttle.IdentifierWindow,
		IPLimit:          cfg.Throttle.IPLimit,
		IPWindow:         cfg.Throttle.IPWindow,
		Cooldown:         cfg.Throttle.Cooldown,
		LocalInterval:    cfg.Throttle.LocalInterval,
		LocalBurst:       cfg.Throttle.LocalBurst,
		MaxLoginAttempts: cfg.Throttle.MaxLoginAttempts,
		LoginCooldown:    cfg.Throttle.LoginCooldown,

		DeliverySync:    cfg.Delivery.Synchronous,
		DeliveryTimeout: cfg.Delivery.Timeout,
		DeliveryWorkers: cfg.Delivery.Workers,
		DeliveryBuffer:  cfg.Delivery.BufferSize,

		StoreKeyPrefix: cfg.Store.KeyPrefix,

		AuditEnabled: cfg.Audit.Enabled,
		AuditBuffer:  cfg.Audit.BufferSize,

		MetricsEnabled:    cfg.Metrics.Enabled,
		MetricsHistograms: cfg.Metrics.EnableLatencyHistograms,
	}
}

func (e engineEnv) apply(cfg *goVerify.Config) {
	cfg.ProductionMode = e.ProductionMode

	cfg.Codes.TTL = e.CodeTTL
	cfg.Codes.Length = e.CodeLength
	cfg.Codes.KeyDomain = e.CodeKeyDomain
	cfg.Codes.DebugEcho = e.CodeDebugEcho

	cfg.Token.TTL = e.TokenTTL
	cfg.Token.SigningMethod = e.TokenMethod
	cfg.Token.Issuer = e.TokenIssuer
	cfg.Token.Audience = e.TokenAudience
	cfg.Token.Leeway = e.TokenLeeway
	cfg.Token.KeyID = e.TokenKeyID
	// inline values win over *_FILE
	if key := firstNonEmpty(e.TokenPrivateKey, e.TokenPrivFile); key != "" {
		cfg.Token.PrivateKey = []byte(key)
	}
	if key := firstNonEmpty(e.TokenPublicKey, e.TokenPubFile); key != "" {
		cfg.Token.PublicKey = []byte(key)
	}

	cfg.Password.Memory = e.PasswordMemory
	cfg.Password.Time = e.PasswordTime
	cfg.Password.Parallelism = e.PasswordParallelism
	cfg.Password.MinLength = e.PasswordMinLength
	cfg.Password.MaxLength = e.PasswordMaxLength

	cfg.Throttle.Enabled = e.ThrottleEnabled
	cfg.Throttle.IdentifierLimit = e.IdentifierLimit
	cfg.Throttle.IdentifierWindow = e.IdentifierWindow
	cfg.Throttle.IPLimit = e.IPLimit
	cfg.Throttle.IPWindow = e.IPWindow
	cfg.Throttle.Cooldown = e.Cooldown
	cfg.Throttle.LocalInterval = e.LocalInterval
	cfg.Throttle.LocalBurst = e.LocalBurst
	cfg.Throttle.MaxLoginAttempts = e.MaxLoginAttempts
	cfg.Throttle.LoginCooldown = e.LoginCooldown

	cfg.Delivery.Synchronous = e.DeliverySync
	cfg.Delivery.Timeout = e.DeliveryTimeout
	cfg.Delivery.Workers = e.DeliveryWorkers
	cfg.Delivery.BufferSize = e.DeliveryBuffer

	cfg.Store.KeyPrefix = e.StoreKeyPrefix

	cfg.Audit.Enabled = e.AuditEnabled
	cfg.Audit.BufferSize = e.AuditBuffer

	cfg.Metrics.Enabled = e.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = e.MetricsHistograms
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
