package codes

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goVerify/internal"
	"github.com/MrEthical07/goVerify/internal/dispatch"
	"github.com/MrEthical07/goVerify/kvstore"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	emailKeyDomain = "email_code"
	smsKeyDomain   = "sms_code"
)

var (
	// ErrUnknownPurpose is returned for a purpose outside the recognized set.
	ErrUnknownPurpose = errors.New("unknown verification code purpose")
	// ErrInvalidIdentifier is returned for an empty channel identifier.
	ErrInvalidIdentifier = errors.New("invalid channel identifier")
	// ErrStoreUnavailable wraps code-store and throttle backend failures.
	ErrStoreUnavailable = errors.New("verification code store unavailable")
)

// Config controls code shape, lifetime and delivery dispatch.
type Config struct {
	TTL      time.Duration
	Length   int
	Purposes []Purpose
	// KeyDomain, when set, replaces the per-channel key domains
	// ("sms_code" / "email_code") for every purpose.
	KeyDomain string
	Titles    map[Purpose]string

	// SynchronousDelivery calls the sender inline and reports its error in
	// SendResult.DeliveryErr. The default dispatches in the background.
	SynchronousDelivery bool
	DeliveryTimeout     time.Duration
	DeliveryBufferSize  int
	DeliveryWorkers     int
	DeliveryDropIfFull  bool
}

// DefaultConfig returns 6-digit codes living 900 seconds over the built-in purposes.
func DefaultConfig() Config {
	return Config{
		TTL:                900 * time.Second,
		Length:             6,
		Purposes:           DefaultPurposes(),
		Titles:             DefaultTitles(),
		DeliveryTimeout:    10 * time.Second,
		DeliveryBufferSize: 256,
		DeliveryWorkers:    2,
		DeliveryDropIfFull: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return errors.New("codes TTL must be > 0")
	}
	if !internal.ValidCodeDigits(c.Length) {
		return errors.New("codes Length must be between 4 and 10")
	}
	if len(c.Purposes) == 0 {
		return errors.New("codes Purposes must not be empty")
	}
	for _, p := range c.Purposes {
		if strings.TrimSpace(string(p)) == "" {
			return errors.New("codes Purposes contains an empty purpose")
		}
		if strings.ContainsRune(string(p), ':') {
			return fmt.Errorf("codes purpose %q must not contain ':'", p)
		}
	}
	if strings.ContainsRune(c.KeyDomain, ':') {
		return errors.New("codes KeyDomain must not contain ':'")
	}
	if c.DeliveryTimeout < 0 {
		return errors.New("codes DeliveryTimeout must be >= 0")
	}
	if !c.SynchronousDelivery && c.DeliveryBufferSize < 0 {
		return errors.New("codes DeliveryBufferSize must be >= 0")
	}
	return nil
}

// Deps carries the collaborators of a [Manager]. Store is required.
type Deps struct {
	Store    kvstore.KeyedTTLStore
	Throttle Throttle
	Sender   Sender
	Logger   logrus.FieldLogger
	// ClientIP extracts the caller address from ctx for throttling.
	ClientIP func(context.Context) string
	// OnDelivery observes every delivery outcome; err is nil on success.
	OnDelivery func(d Delivery, err error)
	Now        func() time.Time
}

// Manager issues, checks and deletes one-time verification codes.
//
// At most one code is active per (purpose, identifier). The manager never
// deletes a code on its own after a check; consumption is the caller's job.
type Manager struct {
	cfg        Config
	purposes   map[Purpose]struct{}
	store      kvstore.KeyedTTLStore
	throttle   Throttle
	sender     Sender
	log        logrus.FieldLogger
	clientIP   func(context.Context) string
	onDelivery func(Delivery, error)
	now        func() time.Time
	dispatcher *dispatch.Dispatcher[Delivery]
}

// SendResult is returned by [Manager.Send].
type SendResult struct {
	Code      string
	Reused    bool
	Channel   Channel
	ExpiresIn time.Duration
	// DeliveryQueued is true when the delivery was handed to the async dispatcher.
	DeliveryQueued bool
	// DeliveryErr carries the sender error in synchronous mode. The code is
	// stored and valid regardless.
	DeliveryErr error
}

// NewManager validates cfg and starts the delivery dispatcher.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, errors.New("codes store required")
	}

	m := &Manager{
		cfg:        cfg,
		purposes:   make(map[Purpose]struct{}, len(cfg.Purposes)),
		store:      deps.Store,
		throttle:   deps.Throttle,
		sender:     deps.Sender,
		log:        deps.Logger,
		clientIP:   deps.ClientIP,
		onDelivery: deps.OnDelivery,
		now:        deps.Now,
	}
	for _, p := range cfg.Purposes {
		m.purposes[p] = struct{}{}
	}
	if m.throttle == nil {
		m.throttle = AllowAll{}
	}
	if m.sender == nil {
		m.sender = DiscardSender{}
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	if m.now == nil {
		m.now = time.Now
	}

	if !cfg.SynchronousDelivery {
		m.dispatcher = dispatch.New[Delivery](dispatch.Config{
			BufferSize: cfg.DeliveryBufferSize,
			DropIfFull: cfg.DeliveryDropIfFull,
			Workers:    cfg.DeliveryWorkers,
		}, func(ctx context.Context, d Delivery) {
			_ = m.deliver(ctx, d)
		})
	}

	return m, nil
}

// Recognized reports whether p is in the configured purpose set.
func (m *Manager) Recognized(p Purpose) bool {
	_, ok := m.purposes[p]
	return ok
}

// Purposes returns the configured purpose set.
func (m *Manager) Purposes() []Purpose {
	out := make([]Purpose, len(m.cfg.Purposes))
	copy(out, m.cfg.Purposes)
	return out
}

// TTL returns the configured code lifetime.
func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// Key returns the store key for (purpose, identifier).
func (m *Manager) Key(p Purpose, identifier string) string {
	domain := m.cfg.KeyDomain
	if domain == "" {
		domain = smsKeyDomain
		if ChannelFor(identifier) == ChannelEmail {
			domain = emailKeyDomain
		}
	}
	return kvstore.Key(domain, string(p), identifier)
}

// Send issues a code for (purpose, identifier) and hands it to the sender.
//
// An unexpired code is reused and its TTL refreshed, so a user who already
// received a code can still use it after asking for a resend.
func (m *Manager) Send(ctx context.Context, p Purpose, identifier string) (SendResult, error) {
	if !m.Recognized(p) {
		return SendResult{}, ErrUnknownPurpose
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return SendResult{}, ErrInvalidIdentifier
	}

	log := m.log.WithFields(logrus.Fields{
		"purpose":    p,
		"identifier": internal.MaskIdentifier(identifier),
	})

	req := Request{Purpose: p, Identifier: identifier}
	if m.clientIP != nil {
		req.ClientIP = m.clientIP(ctx)
	}
	if err := m.throttle.Allow(ctx, req); err != nil {
		var te *ThrottleError
		if errors.As(err, &te) {
			log.WithField("reason", te.Reason).Warn("verification code send throttled")
			return SendResult{}, err
		}
		log.WithError(err).Error("verification code throttle unavailable")
		return SendResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	key := m.Key(p, identifier)
	code, found, err := m.store.Get(ctx, key)
	if err != nil {
		log.WithError(err).Error("verification code lookup failed")
		return SendResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	reused := found && m.wellFormed(code)
	if !reused {
		code, err = internal.NewNumericCode(m.cfg.Length)
		if err != nil {
			return SendResult{}, err
		}
	} else {
		log.Debug("reusing unexpired verification code")
	}

	if err := m.store.SetWithTTL(ctx, key, code, m.cfg.TTL); err != nil {
		log.WithError(err).Error("verification code store failed")
		return SendResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	channel := ChannelFor(identifier)
	d := Delivery{
		ID:         uuid.NewString(),
		Purpose:    p,
		Channel:    channel,
		Identifier: identifier,
		Code:       code,
		Title:      m.title(p),
		TTL:        m.cfg.TTL,
		IssuedAt:   m.now(),
	}

	result := SendResult{
		Code:      code,
		Reused:    reused,
		Channel:   channel,
		ExpiresIn: m.cfg.TTL,
	}

	if m.dispatcher == nil {
		result.DeliveryErr = m.deliver(ctx, d)
		return result, nil
	}

	result.DeliveryQueued = m.dispatcher.Submit(ctx, d)
	if !result.DeliveryQueued {
		log.WithField("delivery_id", d.ID).Warn("verification code delivery dropped, code remains valid")
		if m.onDelivery != nil {
			m.onDelivery(d, fmt.Errorf("%w: dispatch queue full", ErrDeliveryFailed))
		}
	}
	return result, nil
}

// Check reports whether candidate matches the stored code. An absent or
// expired code yields false. Store failures yield ErrStoreUnavailable and no verdict.
func (m *Manager) Check(ctx context.Context, p Purpose, identifier, candidate string) (bool, error) {
	if !m.Recognized(p) {
		return false, ErrUnknownPurpose
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || candidate == "" {
		return false, nil
	}

	stored, found, err := m.store.Get(ctx, m.Key(p, identifier))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return false, nil
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1, nil
}

// Delete removes the code for (purpose, identifier). Deleting an absent code is a no-op.
func (m *Manager) Delete(ctx context.Context, p Purpose, identifier string) error {
	if !m.Recognized(p) {
		return ErrUnknownPurpose
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}

	if err := m.store.Delete(ctx, m.Key(p, identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close drains queued deliveries.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.dispatcher.Close()
}

// DeliveryDropped returns how many deliveries the dispatcher dropped.
func (m *Manager) DeliveryDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.dispatcher.Dropped()
}

func (m *Manager) deliver(ctx context.Context, d Delivery) error {
	if m.cfg.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.DeliveryTimeout)
		defer cancel()
	}

	err := m.sender.Deliver(ctx, d)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		m.log.WithFields(logrus.Fields{
			"purpose":     d.Purpose,
			"channel":     d.Channel,
			"identifier":  internal.MaskIdentifier(d.Identifier),
			"delivery_id": d.ID,
		}).WithError(err).Warn("verification code delivery failed, code remains valid")
	}
	if m.onDelivery != nil {
		m.onDelivery(d, err)
	}
	return err
}

func (m *Manager) wellFormed(code string) bool {
	if len(code) != m.cfg.Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func (m *Manager) title(p Purpose) string {
	if t, ok := m.cfg.Titles[p]; ok && t != "" {
		return t
	}
	return string(p)
}
