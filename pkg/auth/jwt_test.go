package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestGenerateAndValidateToken(t *testing.T) {
	session := UserSession{ID: "u1", Name: "Ada", Email: "ada@example.com", TenantID: "t1", Role: RoleEditor}

	token, err := GenerateToken(session, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, session, claims.User)
	assert.Equal(t, "u1", claims.Subject)
	assert.True(t, claims.User.CanEdit())
}

func TestValidateToken_Rejects(t *testing.T) {
	session := UserSession{ID: "u1", TenantID: "t1", Role: RoleViewer}

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(session, testSecret, time.Hour)
		require.NoError(t, err)
		_, err = ValidateToken(token, []byte("other"))
		assert.Error(t, err)
	})

	t.Run("non-positive ttl uses default lifetime", func(t *testing.T) {
		token, err := GenerateToken(session, testSecret, -time.Hour)
		require.NoError(t, err)
		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("missing tenant", func(t *testing.T) {
		token, err := GenerateToken(UserSession{ID: "u2"}, testSecret, time.Hour)
		require.NoError(t, err)
		_, err = ValidateToken(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateToken("not-a-token", testSecret)
		assert.Error(t, err)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := GenerateToken(session, nil, time.Hour)
		assert.Error(t, err)
	})

	assert.False(t, session.CanEdit())
}
