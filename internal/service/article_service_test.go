package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/plugin"
	"github.com/newspress/revisions-backend/pkg/cache"
)

func TestArticleMissingPost(t *testing.T) {
	env := newTestEnv()

	article, err := env.articleService.Get(context.Background(), 9999, 1)
	require.NoError(t, err)

	assert.False(t, article.Exists)
	assert.False(t, article.Status.CanRestore)
	assert.True(t, article.Status.IsLocked)
}

func TestArticleAggregate(t *testing.T) {
	env := newTestEnv(&domain.User{ID: 1, DisplayName: "Jordan Reyes"})
	ctx := context.Background()
	post := createDraft(t, env, 1)

	savePost(t, env, post.ID, &domain.SavePostRequest{Status: strPtr(domain.StatusPublish)}, 1)
	savePost(t, env, post.ID, &domain.SavePostRequest{Content: strPtr("Edited body")}, 1)

	article, err := env.articleService.Get(ctx, post.ID, 1)
	require.NoError(t, err)

	assert.True(t, article.Exists)
	assert.Equal(t, post.ID, article.PostID)
	assert.True(t, article.Status.CanRestore)
	assert.False(t, article.Status.IsLocked)
	assert.Equal(t, 1, article.MaxPages)
	assert.Equal(t, "/admin/post/1/edit", article.EditLink)

	require.NotNil(t, article.Post)
	assert.Equal(t, domain.AnnotationUpdate, article.Post.NPStatus)
	require.NotNil(t, article.Post.AuthorData)
	assert.Equal(t, "Jordan Reyes", article.Post.AuthorData.Name)

	// Three revisions exist, the newest mirrors the post and is excluded
	assert.Len(t, article.Revisions, 2)
	for _, item := range article.Revisions {
		assert.NotEmpty(t, item.Content)
	}
}

func TestArticleRevisionStatusFallbacks(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	post := createDraft(t, env, 1)
	savePost(t, env, post.ID, &domain.SavePostRequest{Content: strPtr("second body")}, 1)

	// Strip the older revision's annotations, as if it predates stamping
	revisions, _, err := env.posts.ListRevisions(post.ID, 1, 50, nil)
	require.NoError(t, err)
	oldest := revisions[len(revisions)-1]
	require.NoError(t, env.meta.Delete(oldest.ID, domain.MetaKeyStatus))

	article, err := env.articleService.Get(ctx, post.ID, 1)
	require.NoError(t, err)

	require.Len(t, article.Revisions, 1)
	assert.Equal(t, domain.AnnotationUnknown, article.Revisions[0].NPStatus)
}

func TestArticlePostStatusFallsBackToDraft(t *testing.T) {
	env := newTestEnv()
	post := &domain.Post{PostType: domain.TypePost, Status: domain.StatusDraft, Title: "Unannotated"}
	require.NoError(t, env.posts.Create(post))

	article, err := env.articleService.Get(context.Background(), post.ID, 1)
	require.NoError(t, err)

	require.NotNil(t, article.Post)
	assert.Equal(t, domain.AnnotationDraft, article.Post.NPStatus)
}

func TestArticlePublishedRevisionOverridesRowStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	post := createDraft(t, env, 1)

	savePost(t, env, post.ID, &domain.SavePostRequest{Status: strPtr(domain.StatusPublish)}, 1)
	savePost(t, env, post.ID, &domain.SavePostRequest{Content: strPtr("Edited body")}, 1)

	article, err := env.articleService.Get(ctx, post.ID, 1)
	require.NoError(t, err)

	var publishItem *domain.RevisionItem
	for _, item := range article.Revisions {
		if item.NPStatus == domain.AnnotationPublish {
			publishItem = item
		}
	}
	require.NotNil(t, publishItem)
	// Revision rows carry inherit; the published annotation wins
	assert.Equal(t, domain.StatusPublish, publishItem.Status)
}

func TestArticlePerPageFilter(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	post := createDraft(t, env, 1)

	for i := 0; i < 4; i++ {
		content := "body " + string(rune('a'+i))
		savePost(t, env, post.ID, &domain.SavePostRequest{Content: &content}, 1)
	}

	env.hooks.RegisterFilter(plugin.FilterPerPage, "test", func(ctx *plugin.HookContext) error {
		ctx.SetOutput(map[string]interface{}{"per_page": 2})
		return nil
	}, 10)

	items, maxPages, err := env.articleService.Revisions(ctx, post.ID, 1)
	require.NoError(t, err)

	assert.Len(t, items, 2)
	assert.Equal(t, 2, maxPages)
}

func TestArticleAggregateCaching(t *testing.T) {
	cacheFake := newFakeCache()
	env := newCachedTestEnv(cacheFake, &domain.User{ID: 1, DisplayName: "Jordan Reyes"})
	ctx := context.Background()
	post := createDraft(t, env, 1)
	savePost(t, env, post.ID, &domain.SavePostRequest{Status: strPtr(domain.StatusPublish)}, 1)

	first, err := env.articleService.Get(ctx, post.ID, 1)
	require.NoError(t, err)
	assert.True(t, cacheFake.has(cache.ArticleKey(post.ID)))

	// A second read serves the cached aggregate with a fresh status block
	second, err := env.articleService.Get(ctx, post.ID, 1)
	require.NoError(t, err)
	assert.True(t, second.Exists)
	assert.Equal(t, first.PostID, second.PostID)
	assert.Equal(t, first.Post.NPStatus, second.Post.NPStatus)
	assert.Len(t, second.Revisions, len(first.Revisions))
	assert.True(t, second.Status.CanRestore)

	// Creating a revision drops the cached aggregate
	savePost(t, env, post.ID, &domain.SavePostRequest{Content: strPtr("Edited body")}, 1)
	assert.False(t, cacheFake.has(cache.ArticleKey(post.ID)))

	// Restoring drops it again after the next read repopulated it
	_, err = env.articleService.Get(ctx, post.ID, 1)
	require.NoError(t, err)
	require.True(t, cacheFake.has(cache.ArticleKey(post.ID)))

	published, err := env.posts.LatestRevisionWithMeta(post.ID, domain.MetaKeyStatus, domain.AnnotationPublish)
	require.NoError(t, err)
	_, err = env.restoreService.Restore(ctx, published.ID, 1)
	require.NoError(t, err)
	assert.False(t, cacheFake.has(cache.ArticleKey(post.ID)))
}

func TestArticleLockedPost(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	post := createDraft(t, env, 1)

	require.NoError(t, env.locks.Refresh(ctx, post.ID, 2))

	article, err := env.articleService.Get(ctx, post.ID, 3)
	require.NoError(t, err)

	assert.True(t, article.Status.IsLocked)
	assert.False(t, article.Status.CanRestore, "a locked post can never be restored")
}
