package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt verifies legacy bcrypt hashes ($2a$, $2b$, $2y$). It never produces
// new hashes; accounts are moved to argon2id on their next successful login.
type Bcrypt struct{}

// Recognizes reports whether encodedHash looks like a bcrypt hash.
func (Bcrypt) Recognizes(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

func (b Bcrypt) Verify(password, encodedHash string) (bool, error) {
	if !b.Recognizes(encodedHash) {
		return false, ErrUnknownHashFormat
	}
	// x/crypto/bcrypt only knows the $2a$ and $2b$ prefixes; $2y$ is the same algorithm.
	if strings.HasPrefix(encodedHash, "$2y$") {
		encodedHash = "$2a$" + encodedHash[4:]
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, ErrPasswordTooLong
	default:
		return false, err
	}
}
