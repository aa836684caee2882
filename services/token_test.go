package services

import (
	"errors"
	"testing"
	"time"

	"payouts/constants"
	apperrors "payouts/errors"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("s3cret")
	token, err := tokens.GenerateToken(7, constants.RoleProvider, time.Hour)
	require.NoError(t, err)

	userID, role, err := tokens.GetUserIDFromToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)
	assert.Equal(t, constants.RoleProvider, role)
}

func TestTokenRejectsWrongSignature(t *testing.T) {
	token, err := NewTokenService("other").GenerateToken(7, constants.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, _, err = NewTokenService("s3cret").GetUserIDFromToken(token)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestTokenRejectsExpired(t *testing.T) {
	tokens := NewTokenService("s3cret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userinfo": map[string]interface{}{"userid": 1, "role": 1},
		"exp":      time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, _, err = tokens.GetUserIDFromToken(token)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestTokenRejectsMissingClaims(t *testing.T) {
	tokens := NewTokenService("s3cret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userinfo": map[string]interface{}{"userid": 1},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, _, err = tokens.GetUserIDFromToken(token)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetAppError(err).Code)

	_, _, err = tokens.GetUserIDFromToken("")
	assert.Equal(t, apperrors.ErrCodeMissingToken, apperrors.GetAppError(err).Code)

	_, _, err = tokens.GetUserIDFromToken("not.a.token")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userinfo": map[string]interface{}{"userid": 1, "role": 1},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = NewTokenService("s3cret").GetUserIDFromToken(token)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}
