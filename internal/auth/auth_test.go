package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-tracking-service/internal/models"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestService_ValidateToken(t *testing.T) {
	service := NewService(testSecret)

	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub":  "ops@fleet",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	// Test valid token
	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, "ops@fleet", claims.Subject)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Empty(t, claims.DriverID)

	// Test invalid token
	_, err = service.ValidateToken("invalid-token")
	assert.Error(t, err)
	assert.Equal(t, ErrInvalidToken, err)

	// Test token with Bearer prefix
	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)
}

func TestService_ValidateToken_DriverClaims(t *testing.T) {
	service := NewService(testSecret)

	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub":       "driver:64a1",
		"role":      "driver",
		"driver_id": "64a1f0c2e4b0a1b2c3d4e5f6",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDriver, claims.Role)
	assert.Equal(t, "64a1f0c2e4b0a1b2c3d4e5f6", claims.DriverID)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service := NewService(testSecret)

	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub":  "ops@fleet",
		"role": "admin",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})

	_, err := service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	service := NewService(testSecret)

	token := mintToken(t, "some-other-secret", jwt.MapClaims{
		"sub":  "ops@fleet",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	_, err := service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_BadClaims(t *testing.T) {
	service := NewService(testSecret)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"missing subject", jwt.MapClaims{"role": "admin", "exp": exp}},
		{"missing role", jwt.MapClaims{"sub": "ops@fleet", "exp": exp}},
		{"unknown role", jwt.MapClaims{"sub": "ops@fleet", "role": "superuser", "exp": exp}},
		{"missing expiry", jwt.MapClaims{"sub": "ops@fleet", "role": "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := mintToken(t, testSecret, tt.claims)
			_, err := service.ValidateToken(token)
			assert.Equal(t, ErrInvalidToken, err)
		})
	}
}

func TestService_ValidateToken_RejectsUnsignedAlg(t *testing.T) {
	service := NewService(testSecret)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "ops@fleet",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.ValidateToken(unsigned)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := NewService(testSecret)

	// Test valid header
	token := "valid-token"
	header := "Bearer " + token
	extracted, err := service.ExtractTokenFromHeader(header)
	assert.NoError(t, err)
	assert.Equal(t, token, extracted)

	// Test empty header
	_, err = service.ExtractTokenFromHeader("")
	assert.Error(t, err)
	assert.Equal(t, ErrInvalidToken, err)

	// Test invalid format
	_, err = service.ExtractTokenFromHeader("InvalidFormat")
	assert.Error(t, err)
	assert.Equal(t, ErrInvalidToken, err)

	// Test missing token
	_, err = service.ExtractTokenFromHeader("Bearer ")
	assert.Error(t, err)
	assert.Equal(t, ErrInvalidToken, err)
}
