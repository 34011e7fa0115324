package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifier(t *testing.T) {
	valid := []string{
		"user@example.com",
		"  user@example.com ",
		"+8613800138000",
		"+14155550100",
	}
	for _, s := range valid {
		assert.NoError(t, Identifier(s), s)
	}

	invalid := []string{
		"",
		"   ",
		"not-an-email@",
		"13800138000",
		"+12",
		"abc",
	}
	for _, s := range invalid {
		assert.ErrorIs(t, Identifier(s), ErrInvalidIdentifier, s)
	}
}

func TestPassword(t *testing.T) {
	require.NoError(t, Password("secret1", 6, 64))
	require.NoError(t, Password("anything", 0, 0))

	err := Password("abc", 6, 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPassword))

	err = Password(strings.Repeat("x", 65), 6, 64)
	assert.ErrorIs(t, err, ErrInvalidPassword)

	// Lengths count characters, not bytes.
	assert.NoError(t, Password("密码密码密码", 6, 6))
}

type registerBody struct {
	Identifier string `validate:"required,identifier"`
	Password   string `validate:"required,min=6"`
	Nickname   string `validate:"omitempty,max=8"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(registerBody{Identifier: "a@b.co", Password: "secret1"}))

	err := Struct(registerBody{Identifier: "nope", Password: "x", Nickname: "far too long"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Identifier' failed 'identifier'")
	assert.Contains(t, err.Error(), "field 'Password' failed 'min'")
	assert.Contains(t, err.Error(), "field 'Nickname' failed 'max'")
}
