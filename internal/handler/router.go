package handler

import (
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/middleware"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth    *AuthHandler
	Upload  *UploadHandler
	History *HistoryHandler
	Segment *SegmentHandler
	Debug   *DebugHandler
	Health  *HealthHandler

	Tokens middleware.TokenValidator
	Authz  middleware.PermissionChecker
}

// NewRouter wires the public and protected routes.
func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.CORS())

	// Public routes
	r.GET("/health", h.Health.Health)
	r.POST("/api/auth/register", h.Auth.Register)
	r.POST("/api/auth/login", h.Auth.Login)

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.Tokens))

	api.GET("/auth/permissions", h.Debug.CheckUserPermissions)

	api.POST("/uploads",
		middleware.RequirePermission(h.Authz, service.ResourceUploads, service.ActionWrite),
		h.Upload.Upload)
	api.GET("/uploads",
		middleware.RequirePermission(h.Authz, service.ResourceUploads, service.ActionRead),
		h.History.ListUploads)
	api.DELETE("/uploads/:id",
		middleware.RequirePermission(h.Authz, service.ResourceUploads, service.ActionDelete),
		h.History.DeleteUpload)
	api.DELETE("/data",
		middleware.RequirePermission(h.Authz, service.ResourceData, service.ActionDelete),
		h.History.DeleteAllData)

	api.GET("/segments",
		middleware.RequirePermission(h.Authz, service.ResourceSegments, service.ActionRead),
		h.Segment.ListSegments)
	api.GET("/segments/summary",
		middleware.RequirePermission(h.Authz, service.ResourceSegments, service.ActionRead),
		h.Segment.Summary)

	return r
}
