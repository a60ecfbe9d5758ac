package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/pkg/jwt"
)

// JWTAuth requires a valid Bearer token. Every failure mode answers with the
// same forbidden payload so callers cannot probe token validity.
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.APIErrorResponse(c, common.ErrRestoreForbidden)
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.APIErrorResponse(c, common.ErrRestoreForbidden)
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyToken(parts[1])
		if err != nil {
			common.APIErrorResponse(c, common.ErrRestoreForbidden)
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("level", claims.Level)

		c.Next()
	}
}

// GetUserID extracts the authenticated user id from context, 0 when absent
func GetUserID(c *gin.Context) uint64 {
	userID, exists := c.Get("userID")
	if !exists {
		return 0
	}
	if id, ok := userID.(uint64); ok {
		return id
	}
	return 0
}

// GetUsername extracts the authenticated username from context
func GetUsername(c *gin.Context) string {
	username, exists := c.Get("username")
	if !exists {
		return ""
	}
	if name, ok := username.(string); ok {
		return name
	}
	return ""
}

// GetUserLevel extracts the authenticated user level from context
func GetUserLevel(c *gin.Context) int {
	level, exists := c.Get("level")
	if !exists {
		return 0
	}
	if lvl, ok := level.(int); ok {
		return lvl
	}
	return 0
}
