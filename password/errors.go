package password

import "errors"

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	// ErrUnknownHashFormat is returned for stored hashes no configured scheme recognizes.
	ErrUnknownHashFormat = errors.New("unknown password hash format")
	// ErrMalformedHash means the argon2id prefix matched but the rest did not parse.
	ErrMalformedHash = errors.New("malformed argon2id hash")
)
