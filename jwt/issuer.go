package jwt

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
	MethodRS256   SigningMethod = "rs256"
)

// ParseSigningMethod accepts any letter case and the JOSE names ("HS256", "EdDSA", "RS256").
func ParseSigningMethod(s string) (SigningMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hs256":
		return MethodHS256, nil
	case "ed25519", "eddsa":
		return MethodEd25519, nil
	case "rs256":
		return MethodRS256, nil
	default:
		return "", fmt.Errorf("unsupported signing method %q", s)
	}
}

// Config configures an [Issuer].
//
// For hs256 PrivateKey is the shared secret. For ed25519 keys may be raw or
// PEM encoded. For rs256 keys must be PEM encoded. A verify-only issuer may
// omit PrivateKey for the asymmetric methods.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	// Subject is the default role descriptor placed in "sub".
	Subject string
	Leeway  time.Duration
	// KeyID is written to the "kid" header. When VerifyKeys is set, tokens
	// are verified against the key named by their "kid".
	KeyID      string
	VerifyKeys map[string][]byte
}

// Claims is the immutable claim set of a session token.
type Claims struct {
	Data map[string]any `json:"data,omitempty"`
	// Algorithm is taken from the token header and is not part of the payload.
	Algorithm string `json:"-"`
	jwt.RegisteredClaims
}

// TokenID returns the token unique id ("jti").
func (c *Claims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Remaining returns the lifetime left at now, clamped to zero.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// UserID returns data.user_id rendered as a string, or "" when absent.
func (c *Claims) UserID() string {
	v, ok := c.Data["user_id"]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Token is a signed token and the claims it carries.
type Token struct {
	Raw    string
	Claims Claims
}

// Issuer signs and parses session tokens.
type Issuer struct {
	config    Config
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	verifyBy  map[string]any
	now       func() time.Time
}

// NewIssuer validates cfg and decodes its keys.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	i := &Issuer{config: cfg, now: time.Now}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		i.method = jwt.SigningMethodHS256
		i.signKey = cfg.PrivateKey
		i.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		i.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			i.signKey = priv
			i.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			i.verifyKey = pub
		}
	case MethodRS256:
		i.method = jwt.SigningMethodRS256
		if len(cfg.PrivateKey) > 0 {
			priv, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
			if err != nil {
				return nil, errors.New("invalid rs256 private key")
			}
			i.signKey = priv
			i.verifyKey = &priv.PublicKey
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKey)
			if err != nil {
				return nil, errors.New("invalid rs256 public key")
			}
			i.verifyKey = pub
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	if len(cfg.VerifyKeys) > 0 {
		i.verifyBy = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			key, err := i.decodeVerifyKey(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
			}
			i.verifyBy[kid] = key
		}
		if cfg.KeyID != "" {
			if _, ok := i.verifyBy[cfg.KeyID]; !ok {
				return nil, errors.New("KeyID is not present in VerifyKeys")
			}
		}
	}

	if i.verifyKey == nil && i.verifyBy == nil {
		return nil, fmt.Errorf("%s requires a public key or verify key set", cfg.SigningMethod)
	}

	return i, nil
}

// WithClock replaces the issuer clock for both issuing and parsing.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	if now != nil {
		i.now = now
	}
	return i
}

// TTL returns the default token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.config.TTL
}

// CanSign reports whether a signing key is configured.
func (i *Issuer) CanSign() bool {
	return i.signKey != nil
}

// Issue mints a token for subject carrying data. An empty subject uses
// Config.Subject and a non-positive ttl uses Config.TTL.
//
// The returned Claims equal what Parse yields for Raw.
func (i *Issuer) Issue(subject string, data map[string]any, ttl time.Duration) (*Token, error) {
	if i.signKey == nil {
		return nil, errors.New("issuer has no signing key")
	}

	claims, err := i.NewClaims(subject, data, ttl)
	if err != nil {
		return nil, err
	}

	tok := jwt.NewWithClaims(i.method, claims)
	if i.config.KeyID != "" {
		tok.Header["kid"] = i.config.KeyID
	}

	raw, err := tok.SignedString(i.signKey)
	if err != nil {
		return nil, err
	}

	return &Token{Raw: raw, Claims: claims}, nil
}

// NewClaims builds the complete claim set for a token minted now. Claims are
// never mutated after construction.
func (i *Issuer) NewClaims(subject string, data map[string]any, ttl time.Duration) (Claims, error) {
	if ttl <= 0 {
		ttl = i.config.TTL
	}
	if subject == "" {
		subject = i.config.Subject
	}

	normalized, err := normalizeData(data)
	if err != nil {
		return Claims{}, err
	}

	now := i.now()
	jti, err := NewID(now)
	if err != nil {
		return Claims{}, err
	}

	claims := Claims{
		Data:      normalized,
		Algorithm: i.method.Alg(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    i.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if i.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.config.Audience}
	}
	return claims, nil
}

// Parse verifies the signature and time window of raw. It does not consult
// the blacklist.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrTokenMalformed
	}
	// The signature segment must be canonical base64url. A lenient decoder
	// ignores the trailing padding bits, so an edited last character would
	// still verify.
	if parts := strings.Split(raw, "."); len(parts) == 3 {
		if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
			return nil, fmt.Errorf("%w: non-canonical signature encoding", ErrTokenSignatureInvalid)
		}
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithJSONNumber(),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(raw, &Claims{}, i.keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalidClaims
	}
	claims.Algorithm = token.Method.Alg()
	if claims.RegisteredClaims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrTokenInvalidClaims)
	}

	return claims, nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != i.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if i.verifyBy != nil {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := i.verifyBy[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	if i.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != i.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return i.verifyKey, nil
}

func (i *Issuer) decodeVerifyKey(raw []byte) (any, error) {
	switch i.config.SigningMethod {
	case MethodHS256:
		return raw, nil
	case MethodEd25519:
		return parseEdPublicKey(raw)
	default:
		return jwt.ParseRSAPublicKeyFromPEM(raw)
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrTokenNotYetValid
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalidClaims, err)
	}
}

// normalizeData round-trips data through JSON so numbers become json.Number,
// which is how Parse decodes them.
func normalizeData(data map[string]any) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode token data: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode token data: %w", err)
	}
	return out, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
