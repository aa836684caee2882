package middleware

import (
	"payouts/errors"
	"payouts/response"
	"payouts/services"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// AuthMiddleware verifies the bearer token and, when roles are given,
// requires the caller to hold one of them.
func AuthMiddleware(tokens *services.TokenService, roles ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		userID, userRole, err := tokens.GetUserIDFromToken(authHeader)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		if len(roles) > 0 && !hasRole(userRole, roles) {
			response.Forbidden(c)
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, userRole)
		c.Next()
	}
}

func hasRole(role int, roles []int) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CurrentPrincipal returns the caller set by AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (services.Principal, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return services.Principal{}, false
	}
	role, ok := c.Get(ContextUserRole)
	if !ok {
		return services.Principal{}, false
	}
	id, idOK := userID.(uint)
	r, roleOK := role.(int)
	if !idOK || !roleOK {
		return services.Principal{}, false
	}
	return services.Principal{UserID: id, Role: r}, true
}

// ErrorHandler renders errors attached with c.Error when the handler wrote nothing.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			if errors.IsAppError(err) {
				response.FromError(c, err)
				return
			}
			response.ServerError(c)
		}
	}
}
