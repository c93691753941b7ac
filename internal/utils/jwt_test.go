package utils

import (
	"testing"
	"time"

	"wyse/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "a@b.com", IsEmailVerified: true}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("secret", 7*24*time.Hour)
	user := testUser()

	token, err := svc.Generate(user)
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.True(t, claims.IsEmailVerified)
	assert.Equal(t, "banklens-api", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"banklens-client"}, claims.Audience)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	token, err := svc.Generate(testUser())
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenService("other", time.Hour).Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenService("secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := svc.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := models.UserClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    models.TokenIssuer,
				Audience:  jwt.ClaimStrings{"someone-else"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_MissingSecret(t *testing.T) {
	_, err := NewTokenService("", time.Hour).Generate(testUser())
	assert.Error(t, err)
}
