package codes

import "strings"

// Purpose scopes a verification code. A code issued for one purpose never
// satisfies a check for another.
type Purpose string

const (
	// PurposeRegister gates account creation.
	PurposeRegister Purpose = "user_register"
	// PurposeLoginReset gates the forgotten-password reset.
	PurposeLoginReset Purpose = "forget_password"
	// PurposeChangeMobile gates binding a new phone number to an account.
	PurposeChangeMobile Purpose = "change_mobile"
	// PurposeChangeEmail gates binding a new email address to an account.
	PurposeChangeEmail Purpose = "change_email"
)

// DefaultPurposes returns the built-in purpose set.
func DefaultPurposes() []Purpose {
	return []Purpose{
		PurposeRegister,
		PurposeLoginReset,
		PurposeChangeMobile,
		PurposeChangeEmail,
	}
}

// ParsePurpose accepts either the stored tag ("forget_password") or the
// hyphenated alias ("login-reset") used by configuration files.
func ParsePurpose(s string) Purpose {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "register", "user_register":
		return PurposeRegister
	case "login-reset", "login_reset", "forget_password":
		return PurposeLoginReset
	case "change-mobile", "change_mobile":
		return PurposeChangeMobile
	case "change-email", "change_email":
		return PurposeChangeEmail
	default:
		return Purpose(strings.TrimSpace(s))
	}
}

func (p Purpose) String() string {
	return string(p)
}

// Channel is the transport a code travels over.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ChannelFor classifies an identifier. Anything containing '@' is an email
// address; everything else is treated as a phone number.
func ChannelFor(identifier string) Channel {
	if strings.ContainsRune(identifier, '@') {
		return ChannelEmail
	}
	return ChannelSMS
}
