package middleware

import (
	"net/http"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"github.com/gin-gonic/gin"
)

// PermissionChecker はロールの権限を判定する
type PermissionChecker interface {
	CheckPermission(user *model.User, resource, action string) (bool, error)
}

// RequirePermission は認可サービス用のミドルウェアを返す
func RequirePermission(authz PermissionChecker, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetUserFromContext(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		allowed, err := authz.CheckPermission(user, resource, action)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}

// CORS は開発用のCORSヘッダーを付与する
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
