package handler

import (
	"net/http"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/middleware"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"

	"github.com/gin-gonic/gin"
)

// PermissionInspector は権限の判定と一覧を提供する
type PermissionInspector interface {
	CheckPermission(user *model.User, resource, action string) (bool, error)
	GetRolePermissions(role string) ([][]string, error)
}

// DebugHandler はデバッグ用ハンドラー
type DebugHandler struct {
	authzService PermissionInspector
}

// NewDebugHandler は新しいデバッグハンドラーを作成
func NewDebugHandler(authzService PermissionInspector) *DebugHandler {
	return &DebugHandler{authzService: authzService}
}

// CheckUserPermissions はユーザーの権限チェック結果を表示
func (h *DebugHandler) CheckUserPermissions(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	resource := c.DefaultQuery("resource", "segments")
	action := c.DefaultQuery("action", "read")

	allowed, checkErr := h.authzService.CheckPermission(user, resource, action)
	permissions, permErr := h.authzService.GetRolePermissions(user.Role)

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
		"resource":          resource,
		"action":            action,
		"allowed":           allowed,
		"error":             getErrorString(checkErr),
		"permissions":       permissions,
		"permissions_error": getErrorString(permErr),
	})
}

func getErrorString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
