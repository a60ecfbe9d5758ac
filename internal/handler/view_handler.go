package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/middleware"
	"github.com/newspress/revisions-backend/internal/plugin"
	"github.com/newspress/revisions-backend/internal/service"
	"github.com/newspress/revisions-backend/pkg/strings"
)

// PageSlug identifies the revisions view page in host-side admin URLs.
const PageSlug = "revisions-view"

// ViewHandler serves the bootstrap payload the revisions view page loads
// before rendering.
type ViewHandler struct {
	articles service.ArticleService
	restores service.RestoreService
	strings  *strings.Registry
	hooks    *plugin.HookManager

	perPage  int
	restRoot string
	viewJS   string
	viewCSS  string
}

// NewViewHandler creates a new ViewHandler. viewJS and viewCSS are the full
// URLs of the built editor bundles.
func NewViewHandler(
	articles service.ArticleService,
	restores service.RestoreService,
	stringsRegistry *strings.Registry,
	hooks *plugin.HookManager,
	perPage int,
	restRoot string,
	viewJS string,
	viewCSS string,
) *ViewHandler {
	return &ViewHandler{
		articles: articles,
		restores: restores,
		strings:  stringsRegistry,
		hooks:    hooks,
		perPage:  perPage,
		restRoot: restRoot,
		viewJS:   viewJS,
		viewCSS:  viewCSS,
	}
}

// Bootstrap handles GET /api/revisions/v1/view
// @Summary Revisions view bootstrap payload
// @Description Returns the strings, article data, settings and asset URLs the view renders from
// @Tags view
// @Produce json
// @Param post query int true "Post ID"
// @Param readonly query bool false "Open the view read-only"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} common.APIResponse
// @Security BearerAuth
// @Router /view [get]
func (h *ViewHandler) Bootstrap(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Query("post"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}
	readonly, _ := strconv.ParseBool(c.DefaultQuery("readonly", "false"))

	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	// Opening the view invalidates autosaves older than the post itself.
	if err := h.restores.PurgeStaleAutosaves(ctx, postID); err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	article, err := h.articles.Get(ctx, postID, userID)
	if err != nil {
		common.APIErrorResponse(c, err)
		return
	}

	perPage := h.perPage
	out := h.hooks.Apply(plugin.FilterPerPage, map[string]interface{}{"per_page": perPage})
	if filtered, ok := out["per_page"].(int); ok && filtered > 0 {
		perPage = filtered
	}

	var data gin.H
	if !article.Exists {
		data = gin.H{
			"postId": postID,
			"post":   false,
			"status": gin.H{
				"readonly":   readonly,
				"canRestore": false,
				"isLocked":   true,
			},
		}
	} else {
		data = gin.H{
			"postId":    article.PostID,
			"post":      article.Post,
			"editLink":  article.EditLink,
			"restUrl":   article.RestURL,
			"revisions": article.Revisions,
			"autosaves": article.Autosaves,
			"maxPages":  article.MaxPages,
			"status": gin.H{
				"readonly":   readonly,
				"canRestore": article.Status.CanRestore,
				"isLocked":   article.Status.IsLocked,
			},
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"strings": h.strings.All(),
		"data":    data,
		"settings": gin.H{
			"root":               h.restRoot,
			"revisions_per_page": perPage,
		},
		"assets": gin.H{
			"script": h.viewJS,
			"style":  h.viewCSS,
		},
	})
}

// RevisionsLink handles GET /api/revisions/v1/posts/:post_id/revisions-link
// @Summary Post row action link
// @Description Returns the admin URL opening the revisions view for a post
// @Tags view
// @Produce json
// @Param post_id path int true "Post ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} common.APIResponse
// @Security BearerAuth
// @Router /posts/{post_id}/revisions-link [get]
func (h *ViewHandler) RevisionsLink(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || postID == 0 {
		common.APIErrorResponse(c, common.ErrMissingParam)
		return
	}

	link := fmt.Sprintf("/admin/edit?page=%s&post=%d", PageSlug, postID)

	out := h.hooks.Apply(plugin.FilterPostLink, map[string]interface{}{
		"link":    link,
		"post_id": postID,
	})
	if filtered, ok := out["link"].(string); ok && filtered != "" {
		link = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"label": h.strings.GetString("admin.post_action", "Revisions"),
		"link":  link,
	})
}
