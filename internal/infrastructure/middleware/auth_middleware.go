package middleware

import (
	"net/http"
	"strings"

	"voxhub/internal/core/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and puts the identity into the
// gin context for downstream handlers.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set("identity_id", claims.IdentityID)
		c.Set("display_name", claims.DisplayName)
		c.Next()
	}
}
