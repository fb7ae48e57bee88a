package handler

import (
	"net/http"
	"strconv"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/middleware"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/rfm"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

const maxSegmentPageSize = 500

// SegmentHandler はセグメント参照のHTTPハンドラー
type SegmentHandler struct {
	segmentation service.SegmentationService
}

// NewSegmentHandler は新しいセグメントハンドラーを作成
func NewSegmentHandler(segmentation service.SegmentationService) *SegmentHandler {
	return &SegmentHandler{segmentation: segmentation}
}

// ListSegments は顧客セグメントを total_spend の降順で返す
func (h *SegmentHandler) ListSegments(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	var filter service.SegmentFilter
	if name := c.Query("segment"); name != "" {
		segment, err := rfm.ParseSegment(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Segment = string(segment)
	}

	// ページングパラメータ
	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			filter.Page = min(p, service.MaxSegmentPage)
		}
	}
	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filter.Limit = min(l, maxSegmentPageSize)
		}
	}

	resp, err := h.segmentation.ListSegments(c.Request.Context(), user.ID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Summary はセグメント別の集計を返す
func (h *SegmentHandler) Summary(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	resp, err := h.segmentation.Summary(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
