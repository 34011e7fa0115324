package jwt

import (
	"crypto/rand"
	"time"

	"github.com/MrEthical07/goVerify/internal"
	"github.com/oklog/ulid/v2"
)

// NewID returns a token unique id: a ULID stamped with now followed by a
// 128-bit random suffix. The ULID keeps ids sortable by issue time.
func NewID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	suffix, err := internal.NewRandomSuffix()
	if err != nil {
		return "", err
	}
	return id.String() + "." + suffix, nil
}
