package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"long enough", "jollof-rice-42", nil},
		{"too short", "amala", ErrPasswordTooShort},
		{"exact minimum", "123456789012", nil},
		{"multibyte counts as characters", "ọ̀ọ̀ọ̀ọ̀ọ̀ọ̀", nil},
		{"too long", strings.Repeat("a", 73), ErrPasswordTooLong},
		{"exact maximum", strings.Repeat("a", 72), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePassword(tt.password), tt.wantErr)
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("suya-at-midnight", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "suya-at-midnight", hash)

	assert.NoError(t, CheckPassword("suya-at-midnight", hash))
	assert.ErrorIs(t, CheckPassword("suya-at-noon!!", hash), ErrInvalidPassword)
	assert.ErrorIs(t, CheckPassword("", hash), ErrInvalidPassword)

	_, err = HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestGenerateAPIToken(t *testing.T) {
	plaintext, hash, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.Len(t, plaintext, 64)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashToken(plaintext))

	other, _, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, other)
}

func TestGenerateSessionSecret(t *testing.T) {
	a, err := GenerateSessionSecret()
	require.NoError(t, err)
	b, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
