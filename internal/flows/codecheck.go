package flows

import (
	"context"

	"github.com/MrEthical07/goVerify/codes"
)

// verifyCode turns a check into a single error: nil on match, errInvalid on
// mismatch or absence, the mapped store error otherwise.
func verifyCode(ctx context.Context, store CodeStore, p codes.Purpose, identifier, candidate string, mapErr func(error) error, errInvalid error) error {
	if candidate == "" {
		return errInvalid
	}
	ok, err := store.Check(ctx, p, identifier, candidate)
	if err != nil {
		return mapErr(err)
	}
	if !ok {
		return errInvalid
	}
	return nil
}

func splitIdentifier(identifier string) (mobile, email string) {
	if codes.ChannelFor(identifier) == codes.ChannelEmail {
		return "", identifier
	}
	return identifier, ""
}
