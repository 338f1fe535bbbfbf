package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexora/backend/internal/config"
	"github.com/nexora/backend/pkg/auth"
	"github.com/nexora/backend/pkg/constants"
)

// anonymousUser is the session used when authentication is switched off
func anonymousUser(tenantID string) auth.UserSession {
	return auth.UserSession{
		ID:       "anonymous",
		Name:     "Anonymous",
		TenantID: tenantID,
		Role:     auth.RoleAdmin,
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		constants.ResponseError: "Unauthorized",
		constants.FieldMessage:  message,
		"code":                  "UNAUTHORIZED",
		"data":                  nil,
	})
	c.Abort()
}

// RequireAuth is a middleware that validates JWT tokens
func RequireAuth(cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)

	return func(c *gin.Context) {
		if cfg.Disabled {
			c.Set(constants.ContextKeyUser, anonymousUser(cfg.DefaultTenant))
			c.Next()
			return
		}

		// Get token from Authorization header
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			abortUnauthorized(c, "No authorization token provided")
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != strings.TrimSpace(constants.BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		tokenString := parts[1]
		claims, err := auth.ValidateToken(tokenString, secret)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		// Set user session in context
		c.Set(constants.ContextKeyUser, claims.User)
		c.Set(constants.ContextKeyToken, tokenString)

		c.Next()
	}
}

// RequireEditor lets through sessions that may modify IVR flows
func RequireEditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		userInterface, exists := c.Get(constants.ContextKeyUser)
		if !exists {
			abortUnauthorized(c, "User not authenticated")
			return
		}

		user := userInterface.(auth.UserSession)
		if !user.CanEdit() {
			c.JSON(http.StatusForbidden, gin.H{
				constants.ResponseError: "Forbidden",
				constants.FieldMessage:  "Only editors can change IVR flows",
				"code":                  "FORBIDDEN",
				"data":                  nil,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
