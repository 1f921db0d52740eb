package auth

import (
	"testing"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(&config.JWTConfig{
		Secret:            "",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	s := newTestService(t)

	hash, err := s.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, s.VerifyPassword(hash, "correct horse battery staple"))
	assert.Error(t, s.VerifyPassword(hash, "wrong password"))
}

func TestGenerateAndValidateToken(t *testing.T) {
	s := newTestService(t)

	token, jti, err := s.GenerateToken("user-123", "buddy@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "buddy@example.com", claims.Email)
	assert.Equal(t, jti, claims.ID)
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	s1 := newTestService(t)
	s2 := newTestService(t)

	token, _, err := s1.GenerateToken("user-123", "buddy@example.com")
	require.NoError(t, err)

	_, err = s2.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	s := newTestService(t)

	_, err := s.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestExtractJTI(t *testing.T) {
	s := newTestService(t)

	token, jti, err := s.GenerateToken("user-123", "buddy@example.com")
	require.NoError(t, err)

	extracted, err := s.ExtractJTI(token)
	require.NoError(t, err)
	assert.Equal(t, jti, extracted)
}

func TestGenerateRandomTokenUnique(t *testing.T) {
	a, err := GenerateRandomToken(32)
	require.NoError(t, err)
	b, err := GenerateRandomToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43) // 32 bytes, base64url without padding
}

func TestAccessTokenExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, AccessTokenExpired(nil, now))
	assert.False(t, AccessTokenExpired(&future, now))
	assert.True(t, AccessTokenExpired(&past, now))
}
