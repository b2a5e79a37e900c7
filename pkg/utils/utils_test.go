package utils

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSealOpen(t *testing.T) {
	sealed, err := Seal([]byte(testSecret), "access-token")
	require.NoError(t, err)
	assert.NotEqual(t, "access-token", sealed)

	plain, err := Open([]byte(testSecret), sealed)
	require.NoError(t, err)
	assert.Equal(t, "access-token", plain)
}

func TestSealUsesFreshNonce(t *testing.T) {
	a, err := Seal([]byte(testSecret), "same")
	require.NoError(t, err)
	b, err := Seal([]byte(testSecret), "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenErrors(t *testing.T) {
	sealed, err := Seal([]byte(testSecret), "access-token")
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    string
		sealed string
		want   error
	}{
		{"short input", testSecret, "AAAA", ErrUnreadable},
		{"not base64", testSecret, "%%%", ErrUnreadable},
		{"rotated key", "fedcba9876543210fedcba9876543210", sealed, ErrUnreadable},
		{"wrong key length", "short-or-rotated-key", sealed, ErrInvalidKey},
		{"empty key", "", sealed, ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open([]byte(tt.key), tt.sealed)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSealRejectsInvalidKey(t *testing.T) {
	_, err := Seal([]byte("short-or-rotated-key"), "access-token")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestToken(t *testing.T) {
	token, err := GenerateToken(testSecret, strconv.Itoa(42), time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)

	_, err = ValidateToken("another-secret", token)
	assert.Error(t, err)
}

func TestState(t *testing.T) {
	state, err := GenerateState(testSecret, 9, "tiktok", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateState(testSecret, state, "tiktok")
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)

	_, err = ValidateState(testSecret, state, "youtube")
	assert.Error(t, err)

	expired, err := GenerateState(testSecret, 9, "tiktok", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateState(testSecret, expired, "tiktok")
	assert.Error(t, err)
}
