package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolution-fly/flight-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("u-1", domain.RoleOperator)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleOperator, claims.Role)
	assert.NotEmpty(t, claims.ID, "jti must be set for the logout denylist")
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("u-1", domain.RoleClient)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	tm.ttl = -time.Minute

	token, _, err := tm.GenerateToken("u-1", domain.RoleClient)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	_, err := tm.ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("long-enough-secret"))
}

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("long-enough-secret", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "long-enough-secret"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}
