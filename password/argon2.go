package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonPrefix = "$argon2id$"

	floorMemoryKB    uint32 = 8 * 1024
	floorTime        uint32 = 1
	floorParallelism uint8  = 1
	floorSalt        uint32 = 16
	floorKey         uint32 = 16

	// MinPasswordBytes is the shortest secret Hash accepts. Request-level
	// validation normally rejects short passwords before they get here.
	MinPasswordBytes = 6

	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
}

func (c Config) check() error {
	switch {
	case c.Memory < floorMemoryKB:
		return fmt.Errorf("password memory must be >= %d KiB", floorMemoryKB)
	case c.Time < floorTime:
		return fmt.Errorf("password time must be >= %d", floorTime)
	case c.Parallelism < floorParallelism:
		return fmt.Errorf("password parallelism must be >= %d", floorParallelism)
	case c.SaltLength < floorSalt:
		return fmt.Errorf("password salt length must be >= %d", floorSalt)
	case c.KeyLength < floorKey:
		return fmt.Errorf("password key length must be >= %d", floorKey)
	case c.MaxPasswordBytes < 0:
		return fmt.Errorf("password max bytes must be >= 0")
	}
	return nil
}

// Argon2 produces and checks argon2id PHC strings:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt b64>$<key b64>
type Argon2 struct {
	cfg Config
}

// NewArgon2 rejects parameters below the package floors.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash derives a key from the raw password bytes under a fresh salt.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.checkLength(password); err != nil {
		return "", err
	}
	if len(password) < MinPasswordBytes {
		return "", ErrPasswordTooShort
	}

	salt := make([]byte, a.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	p := phc{
		memory:      a.cfg.Memory,
		time:        a.cfg.Time,
		parallelism: a.cfg.Parallelism,
		salt:        salt,
	}
	p.key = p.derive(password, a.cfg.KeyLength)
	return p.String(), nil
}

// Verify re-derives the key with the parameters recorded in encoded.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if err := a.checkLength(password); err != nil {
		return false, err
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	got := p.derive(password, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(got, p.key) == 1, nil
}

// NeedsUpgrade is true when encoded is cheaper than the current parameters
// or has a different key length.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	weaker := p.memory < a.cfg.Memory ||
		p.time < a.cfg.Time ||
		p.parallelism < a.cfg.Parallelism ||
		uint32(len(p.key)) != a.cfg.KeyLength
	return weaker, nil
}

func (a *Argon2) checkLength(password string) error {
	if len(password) > a.cfg.MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, keyLen)
}

func (p phc) String() string {
	var b strings.Builder
	b.WriteString(argonPrefix)
	fmt.Fprintf(&b, "v=%d$m=%d,t=%d,p=%d$", argon2.Version, p.memory, p.time, p.parallelism)
	b.WriteString(base64.StdEncoding.EncodeToString(p.salt))
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(p.key))
	return b.String()
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

func parsePHC(encoded string) (phc, error) {
	rest, ok := strings.CutPrefix(encoded, argonPrefix)
	if !ok {
		return phc{}, ErrUnknownHashFormat
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return phc{}, malformed("field count")
	}

	version, ok := strings.CutPrefix(fields[0], "v=")
	if !ok {
		return phc{}, malformed("missing version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return phc{}, malformed("unsupported version " + version)
	}

	var p phc
	if err := p.parseParams(fields[1]); err != nil {
		return phc{}, err
	}

	var err error
	if p.salt, err = base64.StdEncoding.DecodeString(fields[2]); err != nil || uint32(len(p.salt)) < floorSalt {
		return phc{}, malformed("salt")
	}
	if p.key, err = base64.StdEncoding.DecodeString(fields[3]); err != nil || len(p.key) == 0 {
		return phc{}, malformed("key")
	}
	return p, nil
}

// parseParams reads "m=..,t=..,p=.." and requires each exactly once.
func (p *phc) parseParams(field string) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(field, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return malformed("parameter " + pair)
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < floorMemoryKB {
				return malformed("memory")
			}
			p.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < floorTime {
				return malformed("time")
			}
			p.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || uint8(v) < floorParallelism {
				return malformed("parallelism")
			}
			p.parallelism = uint8(v)
		default:
			return malformed("unknown parameter " + name)
		}
	}
	if len(seen) != 3 {
		return malformed("missing parameters")
	}
	return nil
}
