package services

import (
	"testing"
	"time"

	"github.com/callpilot/callpilot/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:      "test-secret-key-for-tokens",
		AccessTokenTTL: time.Hour,
		Issuer:         "callpilot-test",
		Audience:       "callpilot-api",
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(config.JWTConfig{AccessTokenTTL: time.Hour})
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.CustomerID)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessTokenTTL = -time.Minute
	svc, err := NewTokenService(cfg)
	require.NoError(t, err)

	token, err := svc.GenerateToken(1)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)
	token, err := svc.GenerateToken(1)
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.SecretKey = "a-different-secret"
	other, err := NewTokenService(otherCfg)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "not-a-token"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9.broken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestGenerateTokenUniqueTokenIDs(t *testing.T) {
	svc, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)

	t1, err := svc.GenerateToken(1)
	require.NoError(t, err)
	t2, err := svc.GenerateToken(1)
	require.NoError(t, err)

	c1, err := svc.ValidateToken(t1)
	require.NoError(t, err)
	c2, err := svc.ValidateToken(t2)
	require.NoError(t, err)
	assert.NotEqual(t, c1.TokenID, c2.TokenID)
}
