package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	sub := Subject{UserID: 7, MemberID: 3, MemberNo: "SV003", Username: "munashe", Role: "MEMBER"}

	token, err := GenerateAccessToken(sub, "secret", 15)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, uint(3), claims.MemberID)
	assert.Equal(t, "SV003", claims.MemberNo)
	assert.Equal(t, "MEMBER", claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(Subject{UserID: 1}, "secret", 15)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "other")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessToken_Expired(t *testing.T) {
	token, err := GenerateAccessToken(Subject{UserID: 1}, "secret", -1)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	token, err := GenerateRefreshToken(9, "tok-1", "refresh", 7)
	require.NoError(t, err)

	claims, err := ValidateRefreshToken(token, "refresh")
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.UserID)
	assert.Equal(t, "tok-1", claims.TokenID)

	_, err = ValidateAccessToken("garbage", "refresh")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
