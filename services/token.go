package services

import (
	"fmt"
	"strings"
	"time"

	"payouts/errors"

	"github.com/dgrijalva/jwt-go"
)

// TokenService verifies HS256 bearer tokens. Identity lives in the
// "userinfo" claim as {"userid": <id>, "role": <role>}.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GetUserIDFromToken verifies tokenString and returns the user id and role it carries.
func (t *TokenService) GetUserIDFromToken(tokenString string) (uint, int, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return 0, 0, errors.NewAppError(errors.ErrCodeMissingToken, "missing token", errors.ErrUnauthorized)
	}
	if len(t.secret) == 0 {
		return 0, 0, errors.NewAppError(errors.ErrCodeInvalidToken, "token verification is not configured", errors.ErrUnauthorized)
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, 0, errors.NewAppError(errors.ErrCodeInvalidToken, "invalid token", errors.ErrUnauthorized)
	}

	userInfo, ok := claims["userinfo"].(map[string]interface{})
	if !ok {
		return 0, 0, errors.NewAppError(errors.ErrCodeInvalidToken, "token carries no user info", errors.ErrUnauthorized)
	}

	userID, okID := userInfo["userid"].(float64)
	if !okID || userID <= 0 {
		return 0, 0, errors.NewAppError(errors.ErrCodeInvalidToken, "token carries no user id", errors.ErrUnauthorized)
	}

	role, okRole := userInfo["role"].(float64)
	if !okRole {
		return 0, 0, errors.NewAppError(errors.ErrCodeInvalidToken, "token carries no role", errors.ErrUnauthorized)
	}

	return uint(userID), int(role), nil
}

// GenerateToken signs a token for userID and role. A zero ttl means no expiry.
func (t *TokenService) GenerateToken(userID uint, role int, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userinfo": map[string]interface{}{
			"userid": userID,
			"role":   role,
		},
		"iat": time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}
