package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/phonoecho_service/internal/errors"
)

func TestAuthService_IssueAndValidate(t *testing.T) {
	auth := NewAuthService("test-secret", time.Hour)

	token, err := auth.IssueToken("learner-7")
	require.NoError(t, err)

	userID, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "learner-7", userID)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	auth := NewAuthService("test-secret", time.Hour)

	other, err := NewAuthService("other-secret", time.Hour).IssueToken("learner-7")
	require.NoError(t, err)

	expiredAuth := NewAuthService("test-secret", time.Hour)
	expiredAuth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredAuth.IssueToken("learner-7")
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "learner-7"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": other,
		"expired":      expired,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}

func TestAuthService_IssueTokenValidation(t *testing.T) {
	_, err := NewAuthService("test-secret", time.Hour).IssueToken("")
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	_, err = NewAuthService("", time.Hour).IssueToken("learner-7")
	assert.True(t, errors.IsCode(err, errors.ErrInternal))
}
