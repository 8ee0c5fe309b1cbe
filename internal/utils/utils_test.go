package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewAccessToken_Claims(t *testing.T) {
	tok, err := NewAccessToken("k", Identity{UserID: 7, Role: "PASTOR", ChurchID: "ch1", MemberID: "m1"}, 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("k"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(7), claims["sub"])
	assert.Equal(t, "PASTOR", claims["role"])
	assert.Equal(t, "ch1", claims["church_id"])
	assert.Equal(t, "m1", claims["member_id"])
}

func TestNewAccessToken_OmitsEmptyMember(t *testing.T) {
	tok, err := NewAccessToken("k", Identity{UserID: 1, Role: "ADMIN", ChurchID: "ch1"}, 1)
	require.NoError(t, err)
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("k"), nil })
	require.NoError(t, err)
	_, ok := parsed.Claims.(jwt.MapClaims)["member_id"]
	assert.False(t, ok)
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7)
	require.NoError(t, err)
	b, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("s3nha", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "s3nha"))
	assert.False(t, VerifyPassword(h, "outra"))
}
