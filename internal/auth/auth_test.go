package auth

import (
	"testing"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, exp, err := m.Issue("user-1", models.RoleGuide)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", Role: models.RoleGuide}, id)
	assert.True(t, id.HasRole(models.RoleTourist, models.RoleGuide))
	assert.False(t, id.IsAdmin())
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenManager("other", time.Hour)
		token, _, err := other.Issue("user-1", models.RoleTourist)
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("Expired", func(t *testing.T) {
		past := NewTokenManager("secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.Issue("user-1", models.RoleTourist)
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		claims := Claims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		token, _, err := m.Issue("user-1", "superuser")
		require.NoError(t, err)
		_, err = m.Parse(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret-pass"))
}
