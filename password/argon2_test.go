package password

import (
	"errors"
	"strings"
	"testing"
)

func testArgon(t *testing.T, mutate func(*Config)) *Argon2 {
	t.Helper()
	cfg := fastConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func TestArgon2RoundTrip(t *testing.T) {
	a := testArgon(t, nil)

	encoded, err := a.Hash("lumen-im-2024")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC header: %s", encoded)
	}

	for password, want := range map[string]bool{
		"lumen-im-2024": true,
		"lumen-im-2025": false,
	} {
		ok, err := a.Verify(password, encoded)
		if err != nil {
			t.Fatalf("Verify(%q): %v", password, err)
		}
		if ok != want {
			t.Fatalf("Verify(%q) = %v, want %v", password, ok, want)
		}
	}
}

func TestArgon2SaltIsFresh(t *testing.T) {
	a := testArgon(t, nil)
	first, _ := a.Hash("same-secret")
	second, _ := a.Hash("same-secret")
	if first == second {
		t.Fatal("two hashes of one password share a salt")
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	current := testArgon(t, func(c *Config) { c.Time = 2 })

	cheap, err := testArgon(t, nil).Hash("upgrade-me")
	if err != nil {
		t.Fatal(err)
	}
	same, err := current.Hash("upgrade-me")
	if err != nil {
		t.Fatal(err)
	}
	shortKey, err := testArgon(t, func(c *Config) { c.Time = 2; c.KeyLength = 16 }).Hash("upgrade-me")
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]struct {
		encoded string
		want    bool
	}{
		"weaker time":   {cheap, true},
		"current":       {same, false},
		"different key": {shortKey, true},
	}
	for name, tc := range cases {
		got, err := current.NeedsUpgrade(tc.encoded)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: NeedsUpgrade = %v, want %v", name, got, tc.want)
		}
	}
}

func TestArgon2RejectsMalformedHashes(t *testing.T) {
	a := testArgon(t, nil)
	good, err := a.Hash("parse-target")
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]struct {
		encoded string
		want    error
	}{
		"not phc":        {"not-a-phc-hash", ErrUnknownHashFormat},
		"argon2i":        {strings.Replace(good, "argon2id", "argon2i", 1), ErrUnknownHashFormat},
		"old version":    {strings.Replace(good, "$v=19$", "$v=16$", 1), ErrMalformedHash},
		"missing field":  {good[:strings.LastIndex(good, "$")], ErrMalformedHash},
		"low memory":     {strings.Replace(good, "m=8192", "m=1024", 1), ErrMalformedHash},
		"repeated param": {strings.Replace(good, "t=1", "m=8192", 1), ErrMalformedHash},
		"unknown param":  {strings.Replace(good, "p=1", "x=1", 1), ErrMalformedHash},
		"bad salt":       {strings.Replace(good, "p=1$", "p=1$!!", 1), ErrMalformedHash},
	}
	for name, tc := range cases {
		if _, err := a.Verify("parse-target", tc.encoded); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", name, err, tc.want)
		}
	}
}

func TestArgon2LengthBounds(t *testing.T) {
	a := testArgon(t, func(c *Config) { c.MaxPasswordBytes = 32 })

	if _, err := a.Hash(""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := a.Hash("12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("five bytes: %v", err)
	}
	if _, err := a.Hash(strings.Repeat("x", 33)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("over max: %v", err)
	}

	atMax := strings.Repeat("y", 32)
	encoded, err := a.Hash(atMax)
	if err != nil {
		t.Fatalf("at max: %v", err)
	}
	if ok, err := a.Verify(atMax, encoded); err != nil || !ok {
		t.Fatalf("verify at max: ok=%v err=%v", ok, err)
	}
	if _, err := a.Verify(strings.Repeat("y", 33), encoded); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("verify over max: %v", err)
	}
}

func TestArgon2DefaultMaxApplied(t *testing.T) {
	a := testArgon(t, nil)
	if _, err := a.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected default cap of %d bytes, got %v", DefaultMaxPasswordBytes, err)
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 4096 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max bytes":   func(c *Config) { c.MaxPasswordBytes = -1 },
	} {
		cfg := fastConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}
