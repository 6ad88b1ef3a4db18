package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware enforces bearer JWT tokens signed with HS256 and stores the
// caller's account ID and role on the request context.
func AuthMiddleware(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("account_id", claims.AccountID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireInstructor aborts unless the authenticated account is an instructor
func RequireInstructor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "instructor" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "instructor role required"})
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated account ID from the request context
func AccountID(c *gin.Context) uint {
	if v, ok := c.Get("account_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
