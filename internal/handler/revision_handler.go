package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/middleware"
	"github.com/newspress/revisions-backend/internal/service"
)

// RevisionHandler serves the revisions REST surface
type RevisionHandler struct {
	articles service.ArticleService
	restores service.RestoreService
	meta     service.MetaService
}

// NewRevisionHandler creates a new RevisionHandler
func NewRevisionHandler(articles service.ArticleService, restores service.RestoreService, meta service.MetaService) *RevisionHandler {
	return &RevisionHandler{articles: articles, restores: restores, meta: meta}
}

// UpdateAutosaveRequest is the body of the autosave annotation endpoint
type UpdateAutosaveRequest struct {
	PostType string                 `json:"post_type" binding:"required"`
	Meta     map[string]interface{} `json:"meta"`
}

// Restore handles POST /api/revisions/v1/restore/:revision_id
// @Summary Restore a revision
// @Description Reverts the parent post to the given revision
// @Tags revisions
// @Produce json
// @Param revision_id path int true "Revision ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /restore/{revision_id} [post]
func (h *RevisionHandler) Restore(c *gin.Context) {
	revisionID, err := strconv.ParseUint(c.Param("revision_id"), 10, 64)
	if err != nil || revisionID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	postID, err := h.restores.Restore(c.Request.Context(), revisionID, middleware.GetUserID(c))
	if err != nil {
		middleware.CountRestore("failure")
		common.APIErrorResponse(c, err)
		return
	}
	middleware.CountRestore("success")

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Success! The revision has been successfully restored.",
		"data": gin.H{
			"postId": postID,
		},
	})
}

// CheckStatus handles GET /api/revisions/v1/check-status/:post_id
// @Summary Check restore status of a post
// @Description Returns whether the current user can restore and whether the post is locked
// @Tags revisions
// @Produce json
// @Param post_id path int true "Post ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} common.APIResponse
// @Security BearerAuth
// @Router /check-status/{post_id} [get]
func (h *RevisionHandler) CheckStatus(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	c.JSON(http.StatusOK, gin.H{
		"canRestore": h.restores.CanRestore(ctx, postID, userID) == nil,
		"isLocked":   h.restores.IsLocked(ctx, postID, userID),
	})
}

// GetPost handles GET /api/revisions/v1/post/:post_id
// @Summary Get the article aggregate for a post
// @Description Returns the post, a page of its revisions and its restore status
// @Tags revisions
// @Produce json
// @Param post_id path int true "Post ID"
// @Success 200 {object} domain.Article
// @Failure 400 {object} common.APIResponse
// @Security BearerAuth
// @Router /post/{post_id} [get]
func (h *RevisionHandler) GetPost(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	article, err := h.articles.Get(c.Request.Context(), postID, middleware.GetUserID(c))
	if err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	if !article.Exists {
		c.JSON(http.StatusOK, gin.H{
			"postId": postID,
			"post":   false,
			"status": gin.H{
				"canRestore": false,
				"isLocked":   true,
			},
		})
		return
	}

	c.JSON(http.StatusOK, article)
}

// UpdateAutosave handles POST /api/revisions/v1/autosave/:autosave_id
// @Summary Annotate an autosave
// @Description Marks an autosave revision and applies client meta, refusing bookkeeping keys
// @Tags revisions
// @Accept json
// @Produce json
// @Param autosave_id path int true "Autosave ID"
// @Param request body UpdateAutosaveRequest true "Post type and meta"
// @Success 200 {boolean} bool
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /autosave/{autosave_id} [post]
func (h *RevisionHandler) UpdateAutosave(c *gin.Context) {
	autosaveID, err := strconv.ParseUint(c.Param("autosave_id"), 10, 64)
	if err != nil || autosaveID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	var req UpdateAutosaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	// No meta supplied is not an error, just nothing to apply.
	if req.Meta == nil {
		c.JSON(http.StatusOK, true)
		return
	}

	if err := h.meta.UpdateAutosave(c.Request.Context(), autosaveID, req.Meta, middleware.GetUserID(c)); err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, true)
}
