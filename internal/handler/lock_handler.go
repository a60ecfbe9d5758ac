package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/middleware"
	"github.com/newspress/revisions-backend/internal/repository"
)

// LockHandler serves the edit-lock heartbeat. Editors POST while a post is
// open; the lock expires on its own when the heartbeat stops.
type LockHandler struct {
	locks repository.LockRepository
}

// NewLockHandler creates a new LockHandler
func NewLockHandler(locks repository.LockRepository) *LockHandler {
	return &LockHandler{locks: locks}
}

// Refresh handles POST /api/revisions/v1/lock/:post_id
// @Summary Take or extend the edit lock on a post
// @Tags locks
// @Produce json
// @Param post_id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} common.APIResponse
// @Security BearerAuth
// @Router /lock/{post_id} [post]
func (h *LockHandler) Refresh(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	holder, err := h.locks.Holder(ctx, postID)
	if err != nil {
		common.APIErrorResponse(c, err)
		return
	}
	if holder != 0 && holder != userID {
		c.JSON(http.StatusOK, gin.H{"locked": true, "holder": holder})
		return
	}

	if err := h.locks.Refresh(ctx, postID, userID); err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"locked": false, "holder": userID})
}

// Release handles DELETE /api/revisions/v1/lock/:post_id
// @Summary Release the edit lock on a post
// @Tags locks
// @Produce json
// @Param post_id path int true "Post ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} common.APIResponse
// @Security BearerAuth
// @Router /lock/{post_id} [delete]
func (h *LockHandler) Release(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	if err := h.locks.Release(c.Request.Context(), postID, middleware.GetUserID(c)); err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"released": true})
}
