package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiresAt(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("not-checked"))
	require.NoError(t, err)

	got, ok := ExpiresAt(signed)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = ExpiresAt(noExp)
	assert.False(t, ok)

	_, ok = ExpiresAt("mock-token-1700000000000")
	assert.False(t, ok)
}
