package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"inventory-service/pkg/jwt"
)

// AdminAuth guards the /admin surface. Operators present a bearer token
// signed with ADMIN_JWT_SECRET; anything else is rejected before the
// handler runs.
func AdminAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "missing bearer token"},
			})
			return
		}

		claims, err := manager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "invalid token"},
			})
			return
		}

		c.Set("operator", claims.Subject)
		c.Next()
	}
}
