package password

import "strings"

// Hasher hashes with argon2id and verifies both argon2id and legacy bcrypt hashes.
type Hasher struct {
	argon  *Argon2
	legacy Bcrypt
}

// NewHasher builds a Hasher from argon2id parameters.
func NewHasher(cfg Config) (*Hasher, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: a}, nil
}

// DefaultConfig returns the argon2id parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hash always produces an argon2id PHC string.
func (h *Hasher) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

// Verify dispatches on the stored hash prefix.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argonPrefix):
		return h.argon.Verify(password, encodedHash)
	case h.legacy.Recognizes(encodedHash):
		return h.legacy.Verify(password, encodedHash)
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsUpgrade is true for every legacy hash and for argon2id hashes made
// with weaker parameters.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	if h.legacy.Recognizes(encodedHash) {
		return true, nil
	}
	return h.argon.NeedsUpgrade(encodedHash)
}
