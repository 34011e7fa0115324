package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const (
	minCodeDigits   = 4
	maxCodeDigits   = 10
	tokenSuffixSize = 16
)

var errInvalidCodeDigits = errors.New("code length must be between 4 and 10 digits")

// NewNumericCode returns a string of digits drawn uniformly from crypto/rand.
// Leading zeros are kept, so every code has exactly the requested length.
func NewNumericCode(digits int) (string, error) {
	if digits < minCodeDigits || digits > maxCodeDigits {
		return "", errInvalidCodeDigits
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// ValidCodeDigits reports whether digits is an accepted code length.
func ValidCodeDigits(digits int) bool {
	return digits >= minCodeDigits && digits <= maxCodeDigits
}

// NewRandomSuffix returns 128 random bits, base64url encoded without padding.
func NewRandomSuffix() (string, error) {
	var raw [tokenSuffixSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
