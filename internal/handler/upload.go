package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/logging"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/middleware"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/model"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/rfm"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

var log = logging.MustGetLogger("handler")

const uploadField = "file"

// UploadHandler はCSVアップロードのHTTPハンドラー
type UploadHandler struct {
	segmentation service.SegmentationService
	maxBytes     int64
}

// NewUploadHandler は新しいアップロードハンドラーを作成
func NewUploadHandler(segmentation service.SegmentationService, maxBytes int64) *UploadHandler {
	return &UploadHandler{segmentation: segmentation, maxBytes: maxBytes}
}

// Upload はCSVを取り込み、全履歴で再セグメントする
func (h *UploadHandler) Upload(c *gin.Context) {
	user, exists := middleware.GetUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": h.tooLargeMessage()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": `A CSV file is required in the "file" form field`})
		return
	}
	if fileHeader.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": h.tooLargeMessage()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("could not open uploaded file %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded file could not be read"})
		return
	}
	defer file.Close()

	result, err := h.segmentation.ProcessUpload(c.Request.Context(), user.ID, fileHeader.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		Success:   true,
		Message:   fmt.Sprintf("Successfully processed %d transactions", result.Transactions),
		Customers: result.Customers,
		UploadID:  result.UploadID,
	})
}

func (h *UploadHandler) tooLargeMessage() string {
	return fmt.Sprintf("File exceeds the %d MB upload limit", h.maxBytes>>20)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// respondError maps service errors to status codes. Storage details are
// logged, never returned.
func respondError(c *gin.Context, err error) {
	var storageErr *service.StorageError
	switch {
	case rfm.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUploadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
	case errors.As(err, &storageErr):
		log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save data, please try again later"})
	default:
		log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
