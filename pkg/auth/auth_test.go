package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "secret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret", 7*24*time.Hour)

	token, err := issuer.Generate(12, "sarah@uni.edu", true)
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(12), claims.UserID)
	assert.Equal(t, "sarah@uni.edu", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewIssuer("a", time.Hour).Generate(1, "x@uni.edu", false)
	require.NoError(t, err)

	_, err = NewIssuer("b", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewIssuer("s", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := issuer.Generate(1, "x@uni.edu", false)
	require.NoError(t, err)

	_, err = NewIssuer("s", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
