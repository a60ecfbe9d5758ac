package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/middleware"
	"github.com/newspress/revisions-backend/internal/service"
)

// PostHandler drives the save pipeline
type PostHandler struct {
	posts service.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// Create handles POST /api/revisions/v1/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body domain.CreatePostRequest true "Post fields"
// @Success 200 {object} domain.Post
// @Failure 400 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	var req domain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// Save handles PUT /api/revisions/v1/posts/:post_id
// @Summary Save a post
// @Description Applies an editor save, snapshotting a revision when warranted
// @Tags posts
// @Accept json
// @Produce json
// @Param post_id path int true "Post ID"
// @Param request body domain.SavePostRequest true "Changed fields"
// @Success 200 {object} domain.Post
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{post_id} [put]
func (h *PostHandler) Save(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	var req domain.SavePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	post, err := h.posts.SavePost(c.Request.Context(), domain.SaveContext{}, postID, &req, middleware.GetUserID(c))
	if err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// Autosave handles POST /api/revisions/v1/posts/:post_id/autosave
// @Summary Save the autosave revision of a post
// @Tags posts
// @Accept json
// @Produce json
// @Param post_id path int true "Post ID"
// @Param request body domain.SavePostRequest true "Autosaved fields"
// @Success 200 {object} domain.Post
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{post_id}/autosave [post]
func (h *PostHandler) Autosave(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	var req domain.SavePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	autosave, err := h.posts.SaveAutosave(c.Request.Context(), postID, &req, middleware.GetUserID(c))
	if err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, autosave)
}

// PublishScheduled handles POST /api/revisions/v1/posts/:post_id/publish-scheduled
// @Summary Publish a scheduled post
// @Description Re-saves a scheduled post as published so the transition is captured as a revision
// @Tags posts
// @Produce json
// @Param post_id path int true "Post ID"
// @Success 200 {object} domain.Post
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{post_id}/publish-scheduled [post]
func (h *PostHandler) PublishScheduled(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	post, err := h.posts.PublishScheduled(c.Request.Context(), postID, middleware.GetUserID(c))
	if err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}
