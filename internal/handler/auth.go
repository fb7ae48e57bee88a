package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// Authenticator はログインと登録を行う
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.LoginResponse, error)
	Register(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error)
}

// AuthHandler は認証ハンドラー
type AuthHandler struct {
	authService Authenticator
}

// NewAuthHandler は新しい認証ハンドラーを作成
func NewAuthHandler(authService Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login はログイン処理
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		log.Errorf("login failed for %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Register はアカウント登録処理
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken"})
			return
		}
		log.Errorf("registration failed for %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, response)
}
