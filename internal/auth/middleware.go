package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mangavault/pkg/models"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUsernameKey = "username"
	CtxRoleKey     = "role"
)

// RequireJWT rejects requests without a valid bearer token.
func RequireJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromRequest(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid bearer token"})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWT attaches identity when a valid token is present but lets
// anonymous requests through. Used on reads that personalize output.
func OptionalJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := claimsFromRequest(c, secret); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireRole gates a route behind one of the given roles. Must run after
// RequireJWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// IsStaff reports whether the request identity may manage content it does
// not own.
func IsStaff(c *gin.Context) bool {
	return c.GetString(CtxRoleKey) == models.RoleAdmin
}

func claimsFromRequest(c *gin.Context, secret []byte) (*Claims, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return nil, false
	}
	claims, err := ParseJWT(secret, strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxUsernameKey, claims.Username)
	c.Set(CtxRoleKey, claims.Role)
}
