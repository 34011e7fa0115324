package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidIdentifier is returned for anything that is neither an email
	// address nor an E.164 phone number.
	ErrInvalidIdentifier = errors.New("identifier must be an email address or an E.164 phone number")
	// ErrInvalidPassword is returned when a password is outside the length bounds.
	ErrInvalidPassword = errors.New("password length out of bounds")
)

// v is the package-level singleton validator. Custom tags are registered in
// init before the first call.
var v = validator.New()

func init() {
	if err := v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return Identifier(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}
}

// Identifier accepts an email address or an E.164 phone number.
func Identifier(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrInvalidIdentifier
	}
	tag := "e164"
	if strings.ContainsRune(s, '@') {
		tag = "email"
	}
	if err := v.Var(s, tag); err != nil {
		return ErrInvalidIdentifier
	}
	return nil
}

// Password checks the rune length of s against [minLen, maxLen].
// A non-positive bound is ignored.
func Password(s string, minLen, maxLen int) error {
	var rules []string
	if minLen > 0 {
		rules = append(rules, fmt.Sprintf("min=%d", minLen))
	}
	if maxLen > 0 {
		rules = append(rules, fmt.Sprintf("max=%d", maxLen))
	}
	if len(rules) == 0 {
		return nil
	}
	if err := v.Var(s, strings.Join(rules, ",")); err != nil {
		return fmt.Errorf("%w: want %d..%d characters", ErrInvalidPassword, minLen, maxLen)
	}
	return nil
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
