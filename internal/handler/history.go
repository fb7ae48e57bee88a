package handler

import (
	"net/http"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/middleware"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// HistoryHandler はアップロード履歴とデータ削除のHTTPハンドラー
type HistoryHandler struct {
	segmentation service.SegmentationService
}

// NewHistoryHandler は新しい履歴ハンドラーを作成
func NewHistoryHandler(segmentation service.SegmentationService) *HistoryHandler {
	return &HistoryHandler{segmentation: segmentation}
}

// ListUploads はアップロード履歴を新しい順に返す
func (h *HistoryHandler) ListUploads(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	resp, err := h.segmentation.ListUploads(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteUpload はアップロードとその取引を削除し、残りの履歴で再セグメントする
func (h *HistoryHandler) DeleteUpload(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	if err := h.segmentation.DeleteUpload(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Upload deleted"})
}

// DeleteAllData はユーザーの全データを削除する
func (h *HistoryHandler) DeleteAllData(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	if err := h.segmentation.DeleteAllData(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All data deleted"})
}
