package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSIssuer(t *testing.T, clock *fixedClock) *Issuer {
	t.Helper()
	iss, err := NewIssuer(Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Issuer:        "lumen-im",
		Audience:      "user",
		Subject:       "Authorized login",
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss.WithClock(clock.Now)
}

func TestIssueParseRoundTrip(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	iss := newHSIssuer(t, clock)

	tok, err := iss.Issue("user", map[string]any{"user_id": 42}, 3600*time.Second)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := iss.Parse(tok.Raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	n, ok := claims.Data["user_id"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number user_id, got %T", claims.Data["user_id"])
	}
	if v, _ := n.Int64(); v != 42 {
		t.Fatalf("expected user_id 42, got %v", n)
	}
	if claims.UserID() != "42" {
		t.Fatalf("expected UserID 42, got %q", claims.UserID())
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 3600*time.Second {
		t.Fatalf("expected exp-iat of 3600s, got %v", got)
	}
	if !claims.NotBefore.Equal(claims.IssuedAt.Time) {
		t.Fatal("expected nbf == iat")
	}

	want := tok.Claims
	if claims.TokenID() != want.TokenID() || claims.TokenID() == "" {
		t.Fatalf("jti mismatch: %q vs %q", claims.TokenID(), want.TokenID())
	}
	if claims.Subject != "user" || claims.Issuer != "lumen-im" {
		t.Fatalf("unexpected sub/iss: %q %q", claims.Subject, claims.Issuer)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "user" {
		t.Fatalf("unexpected audience: %v", claims.Audience)
	}
	if claims.Algorithm != "HS256" || want.Algorithm != "HS256" {
		t.Fatalf("unexpected algorithm: %q / %q", claims.Algorithm, want.Algorithm)
	}
	if !claims.ExpiresAt.Equal(want.ExpiresAt.Time) || !claims.IssuedAt.Equal(want.IssuedAt.Time) {
		t.Fatal("time claims did not round trip")
	}
	if want.Data["user_id"] != claims.Data["user_id"] {
		t.Fatalf("data mismatch: %v vs %v", want.Data, claims.Data)
	}
}

func TestIssueDefaultsSubjectAndTTL(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	iss := newHSIssuer(t, clock)

	tok, err := iss.Issue("", nil, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Claims.Subject != "Authorized login" {
		t.Fatalf("expected default subject, got %q", tok.Claims.Subject)
	}
	if got := tok.Claims.ExpiresAt.Sub(tok.Claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected default ttl, got %v", got)
	}
}

func TestParseTamperedTokenIsSignatureInvalid(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	iss := newHSIssuer(t, clock)

	tok, err := iss.Issue("user", map[string]any{"user_id": 42}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok.Raw, ".")

	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	flipped := parts[0] + "." + parts[1] + "." + string(sig)
	if _, err := iss.Parse(flipped); !errors.Is(err, ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature invalid for flipped signature byte, got %v", err)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	forged := strings.Replace(string(payload), `"user_id":42`, `"user_id":43`, 1)
	if forged == string(payload) {
		t.Fatal("payload substitution did not apply")
	}
	resigned := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(forged)) + "." + parts[2]
	if _, err := iss.Parse(resigned); !errors.Is(err, ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature invalid for forged payload, got %v", err)
	}
}

const b64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// paddingBits is how many low bits of the final character of an unpadded
// base64url segment carry no data.
func paddingBits(segment string) int {
	switch len(segment) % 4 {
	case 2:
		return 4
	case 3:
		return 2
	}
	return 0
}

func withLastChar(segment string, mask int) string {
	idx := strings.IndexByte(b64URLAlphabet, segment[len(segment)-1])
	return segment[:len(segment)-1] + string(b64URLAlphabet[idx^mask])
}

func TestParseRejectsPaddingBitEdits(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	iss := newHSIssuer(t, clock)

	tok, err := iss.Issue("user", map[string]any{"user_id": 7}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok.Raw, ".")

	for seg := 1; seg <= 2; seg++ {
		bits := paddingBits(parts[seg])
		for mask := 1; mask < 1<<bits; mask++ {
			edited := append([]string(nil), parts...)
			edited[seg] = withLastChar(parts[seg], mask)

			// a lenient decoder sees the same bytes
			orig, _ := base64.RawURLEncoding.DecodeString(parts[seg])
			same, err := base64.RawURLEncoding.DecodeString(edited[seg])
			if err != nil || string(orig) != string(same) {
				t.Fatalf("segment %d mask %d changed data bits", seg, mask)
			}

			if _, err := iss.Parse(strings.Join(edited, ".")); !errors.Is(err, ErrTokenSignatureInvalid) {
				t.Fatalf("segment %d mask %d: expected signature invalid, got %v", seg, mask, err)
			}
		}
	}
}

func TestParseTimeWindow(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	iss := newHSIssuer(t, clock)

	tok, err := iss.Issue("user", nil, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = iss.Parse(tok.Raw)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatal("expired must wrap ErrTokenInvalid")
	}

	future := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "jti-future",
		Issuer:    "lumen-im",
		Audience:  gjwt.ClaimStrings{"user"},
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		NotBefore: gjwt.NewNumericDate(clock.now.Add(10 * time.Minute)),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Hour)),
	}}
	raw, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, future).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := iss.Parse(raw); !errors.Is(err, ErrTokenNotYetValid) {
		t.Fatalf("expected not yet valid, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	iss := newHSIssuer(t, &fixedClock{now: time.Now()})

	for _, raw := range []string{"", "not.a.jwt", "abc", "a.b"} {
		if _, err := iss.Parse(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("expected malformed for %q, got %v", raw, err)
		}
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	iss, err := NewIssuer(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if iss.CanSign() {
		t.Fatal("verify-only issuer must not sign")
	}
	if _, err := iss.Issue("user", nil, 0); err == nil {
		t.Fatal("expected verify-only issuer to refuse issuing")
	}

	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{ID: "x", ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := iss.Parse(token); !errors.Is(err, ErrTokenSignatureInvalid) {
		t.Fatalf("expected wrong algorithm to be rejected as signature invalid, got %v", err)
	}
}

func TestParseIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	iss, err := NewIssuer(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "lumen-im",
		Audience:      "user",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	tok, err := iss.Issue("user", nil, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := iss.Parse(tok.Raw); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	sign := func(c Claims) string {
		raw, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return raw
	}
	base := func(issuer, aud string, exp, iat time.Duration) Claims {
		return Claims{RegisteredClaims: gjwt.RegisteredClaims{
			ID:        "jti",
			Issuer:    issuer,
			Audience:  gjwt.ClaimStrings{aud},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(exp)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(iat)),
		}}
	}

	if _, err := iss.Parse(sign(base("other", "user", time.Minute, 0))); !errors.Is(err, ErrTokenInvalidClaims) {
		t.Fatalf("expected wrong issuer to fail with invalid claims, got %v", err)
	}
	if _, err := iss.Parse(sign(base("lumen-im", "admin", time.Minute, 0))); !errors.Is(err, ErrTokenInvalidClaims) {
		t.Fatalf("expected wrong audience to fail with invalid claims, got %v", err)
	}
	if _, err := iss.Parse(sign(base("lumen-im", "user", -15*time.Second, -time.Minute))); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	if _, err := iss.Parse(sign(base("lumen-im", "user", -2*time.Minute, -3*time.Minute))); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	noJTI := base("lumen-im", "user", time.Minute, 0)
	noJTI.RegisteredClaims.ID = ""
	if _, err := iss.Parse(sign(noJTI)); !errors.Is(err, ErrTokenInvalidClaims) {
		t.Fatalf("expected missing jti to fail, got %v", err)
	}
}

func TestParseUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	iss, err := NewIssuer(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	good, err := iss.Issue("user", nil, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := iss.Parse(good.Raw); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{ID: "x", IssuedAt: gjwt.NewNumericDate(time.Now()), ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	unknown, _ := tok.SignedString(priv1)
	if _, err := iss.Parse(unknown); !errors.Is(err, ErrTokenSignatureInvalid) {
		t.Fatalf("expected unknown kid failure, got %v", err)
	}

	other, err := NewIssuer(Config{TTL: time.Minute, SigningMethod: MethodEd25519, VerifyKeys: map[string][]byte{"k1": pub2}})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if _, err := other.Parse(good.Raw); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestRS256RoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	signer, err := NewIssuer(Config{TTL: time.Hour, SigningMethod: MethodRS256, PrivateKey: privPEM})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewIssuer(Config{TTL: time.Hour, SigningMethod: MethodRS256, PublicKey: pubPEM})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	tok, err := signer.Issue("user", map[string]any{"user_id": "u-1"}, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := verifier.Parse(tok.Raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID() != "u-1" || claims.Algorithm != "RS256" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestNewIssuerValidation(t *testing.T) {
	pub, _ := newEdKeys(t)
	cases := map[string]Config{
		"zero ttl":       {SigningMethod: MethodHS256, PrivateKey: testSecret},
		"short secret":   {TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		"big leeway":     {TTL: time.Minute, PrivateKey: testSecret, Leeway: time.Hour},
		"unknown method": {TTL: time.Minute, SigningMethod: "none", PrivateKey: testSecret},
		"no ed key":      {TTL: time.Minute, SigningMethod: MethodEd25519},
		"bad ed key":     {TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: []byte("nope")},
		"bad rsa key":    {TTL: time.Minute, SigningMethod: MethodRS256, PrivateKey: []byte("nope")},
		"empty kid":      {TTL: time.Minute, SigningMethod: MethodEd25519, VerifyKeys: map[string][]byte{" ": pub}},
		"missing kid":    {TTL: time.Minute, SigningMethod: MethodEd25519, KeyID: "k9", VerifyKeys: map[string][]byte{"k1": pub}},
	}
	for name, cfg := range cases {
		if _, err := NewIssuer(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	for in, want := range map[string]SigningMethod{"": MethodHS256, "HS256": MethodHS256, "EdDSA": MethodEd25519, "rs256": MethodRS256} {
		got, err := ParseSigningMethod(in)
		if err != nil || got != want {
			t.Fatalf("ParseSigningMethod(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSigningMethod("none"); err == nil {
		t.Fatal("expected none to be rejected")
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewID(now)
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
