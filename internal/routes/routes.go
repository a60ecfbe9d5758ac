package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/newspress/revisions-backend/internal/handler"
	"github.com/newspress/revisions-backend/internal/middleware"
	"github.com/newspress/revisions-backend/pkg/jwt"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Revisions *handler.RevisionHandler
	Posts     *handler.PostHandler
	Locks     *handler.LockHandler
	View      *handler.ViewHandler
}

// Setup configures the revisions API routes. Every endpoint requires a
// logged-in user.
func Setup(router *gin.Engine, h *Handlers, jwtManager *jwt.Manager) {
	api := router.Group("/api/revisions/v1")
	api.Use(middleware.JWTAuth(jwtManager))

	// Revisions surface
	api.POST("/restore/:revision_id", h.Revisions.Restore)
	api.GET("/check-status/:post_id", h.Revisions.CheckStatus)
	api.GET("/post/:post_id", h.Revisions.GetPost)
	api.POST("/autosave/:autosave_id", h.Revisions.UpdateAutosave)

	// Save pipeline
	api.POST("/posts", h.Posts.Create)
	api.PUT("/posts/:post_id", h.Posts.Save)
	api.POST("/posts/:post_id/autosave", h.Posts.Autosave)
	api.POST("/posts/:post_id/publish-scheduled", h.Posts.PublishScheduled)

	// Edit locks
	api.POST("/lock/:post_id", h.Locks.Refresh)
	api.DELETE("/lock/:post_id", h.Locks.Release)

	// Revisions view
	api.GET("/view", h.View.Bootstrap)
	api.GET("/posts/:post_id/revisions-link", h.View.RevisionsLink)
}
