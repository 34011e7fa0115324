package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashIdentifier returns a short stable digest of an identifier, used in limiter
// keys so raw phone numbers and addresses never appear as Redis key names.
func HashIdentifier(v string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(v))))
	return hex.EncodeToString(sum[:12])
}

// MaskIdentifier hides the middle of an email local part or phone number for logs.
func MaskIdentifier(v string) string {
	if at := strings.LastIndexByte(v, '@'); at > 0 {
		local, domain := v[:at], v[at:]
		if len(local) <= 1 {
			return "*" + domain
		}
		return local[:1] + strings.Repeat("*", len(local)-1) + domain
	}

	if len(v) <= 2 {
		return strings.Repeat("*", len(v))
	}
	if len(v) < 8 {
		return strings.Repeat("*", len(v)-2) + v[len(v)-2:]
	}
	return v[:3] + strings.Repeat("*", len(v)-7) + v[len(v)-4:]
}
