package apiclient

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_ReadsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	s := NewSession("", token)
	assert.Equal(t, RoleAdmin, s.Role)
	assert.Equal(t, "u1", s.Subject)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(exp.Add(time.Second)))
}

func TestNewSession_OpaqueToken(t *testing.T) {
	s := NewSession(RoleStaff, "opaque")
	assert.Equal(t, RoleStaff, s.Role)
	assert.True(t, s.ExpiresAt.IsZero())
	assert.False(t, s.Expired(time.Now()))
}

func TestSessionExpired_Nil(t *testing.T) {
	var s *Session
	assert.True(t, s.Expired(time.Now()))
}
