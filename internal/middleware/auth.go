package middleware

import (
	"net/http"
	"strings"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// TokenValidator はトークンからユーザーを復元する
type TokenValidator interface {
	ValidateToken(tokenString string) (*model.User, error)
}

// AuthMiddleware はJWT認証ミドルウェア
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Bearer トークンの形式をチェック
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		user, err := tokens.ValidateToken(tokenParts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// ユーザー情報をコンテキストに設定
		c.Set(userContextKey, user)
		c.Next()
	}
}

// GetUserFromContext はコンテキストからユーザー情報を取得
func GetUserFromContext(c *gin.Context) (*model.User, bool) {
	user, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}

	userModel, ok := user.(*model.User)
	return userModel, ok
}

// SetUser はユーザーをコンテキストに保存する
func SetUser(c *gin.Context, user *model.User) {
	c.Set(userContextKey, user)
}
