package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/plugin"
	"github.com/newspress/revisions-backend/internal/repository"
	"github.com/newspress/revisions-backend/pkg/cache"
	"github.com/newspress/revisions-backend/pkg/logger"
)

// DefaultRevisionsPerPage caps a revisions page when config says nothing.
const DefaultRevisionsPerPage = 50

// ArticleService assembles the composite post-plus-revisions view the
// revisions editor boots from.
type ArticleService interface {
	// Get returns the article aggregate for a post. A missing post yields
	// an aggregate with Exists false rather than an error.
	Get(ctx context.Context, postID uint64, userID uint64) (*domain.Article, error)
	// Revisions returns one page of revision items for a post
	Revisions(ctx context.Context, postID uint64, page int) ([]*domain.RevisionItem, int, error)
}

type articleService struct {
	posts repository.PostRepository
	meta  repository.MetaRepository
	users repository.UserRepository

	metaService    MetaService
	restoreService RestoreService
	hooks          *plugin.HookManager
	cache          cache.Service

	perPage     int
	editLinkFmt string
	restURL     string
}

// NewArticleService creates a new ArticleService. editLinkFmt is the
// host-side edit URL template containing one %d verb for the post id.
func NewArticleService(
	posts repository.PostRepository,
	meta repository.MetaRepository,
	users repository.UserRepository,
	metaService MetaService,
	restoreService RestoreService,
	hooks *plugin.HookManager,
	cacheService cache.Service,
	perPage int,
	editLinkFmt string,
	restURL string,
) ArticleService {
	if perPage <= 0 {
		perPage = DefaultRevisionsPerPage
	}
	return &articleService{
		posts:          posts,
		meta:           meta,
		users:          users,
		metaService:    metaService,
		restoreService: restoreService,
		hooks:          hooks,
		cache:          cacheService,
		perPage:        perPage,
		editLinkFmt:    editLinkFmt,
		restURL:        restURL,
	}
}

// Get returns the article aggregate for a post
func (s *articleService) Get(ctx context.Context, postID uint64, userID uint64) (*domain.Article, error) {
	post, err := s.posts.FindByID(postID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if post == nil || post.PostType == domain.TypeRevision {
		// The editor treats a missing post as permanently locked.
		return &domain.Article{
			PostID: postID,
			Status: domain.ArticleStatus{CanRestore: false, IsLocked: true},
		}, nil
	}

	// The aggregate is user-independent except Status, which is always
	// recomputed for the requesting user.
	status := domain.ArticleStatus{
		CanRestore: s.restoreService.CanRestore(ctx, postID, userID) == nil,
		IsLocked:   s.restoreService.IsLocked(ctx, postID, userID),
	}

	if s.cache != nil && s.cache.IsAvailable() {
		var cached domain.Article
		if err := s.cache.Get(ctx, cache.ArticleKey(postID), &cached); err == nil {
			cached.Exists = true
			cached.Status = status
			return &cached, nil
		}
	}

	item, err := s.buildPostItem(post)
	if err != nil {
		return nil, err
	}

	revisions, maxPages, err := s.Revisions(ctx, postID, 1)
	if err != nil {
		return nil, err
	}

	autosaves, err := s.metaService.AutosaveIDs(ctx, postID, false)
	if err != nil {
		return nil, err
	}

	article := &domain.Article{
		PostID:    postID,
		Exists:    true,
		Post:      item,
		EditLink:  s.editLink(postID),
		RestURL:   s.restURL,
		Revisions: revisions,
		Autosaves: autosaves,
		MaxPages:  maxPages,
		Status:    status,
	}

	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.Set(ctx, cache.ArticleKey(postID), article, cache.TTLArticle); err != nil {
			logger.Warn("failed to cache article aggregate for post %d: %v", postID, err)
		}
	}

	return article, nil
}

// Revisions returns one page of revision items for a post, newest first.
// The mirror revision (the one equal to the current post) is excluded.
func (s *articleService) Revisions(ctx context.Context, postID uint64, page int) ([]*domain.RevisionItem, int, error) {
	if page < 1 {
		page = 1
	}

	perPage := s.perPage
	out := s.hooks.Apply(plugin.FilterPerPage, map[string]interface{}{"per_page": perPage})
	if filtered, ok := out["per_page"].(int); ok && filtered > 0 {
		perPage = filtered
	}

	var exclude []uint64
	if latest, err := s.posts.LatestRevision(postID); err == nil {
		exclude = append(exclude, latest.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, err
	}

	revisions, total, err := s.posts.ListRevisions(postID, page, perPage, exclude)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*domain.RevisionItem, 0, len(revisions))
	for i := range revisions {
		item, err := s.buildRevisionItem(&revisions[i])
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}

	maxPages := int((total + int64(perPage) - 1) / int64(perPage))
	if maxPages < 1 {
		maxPages = 1
	}
	return items, maxPages, nil
}

// buildPostItem renders the parent post. Unannotated posts read as draft.
func (s *articleService) buildPostItem(post *domain.Post) (*domain.RevisionItem, error) {
	item, err := s.buildItem(post)
	if err != nil {
		return nil, err
	}

	if item.NPStatus == "" || item.NPStatus == domain.StatusAutoDraft {
		item.NPStatus = domain.AnnotationDraft
	}
	return item, nil
}

// buildRevisionItem renders a revision. Revisions that predate annotation
// stamping read as unknown, and a published annotation overrides the row's
// inherit status so the editor badges it correctly.
func (s *articleService) buildRevisionItem(revision *domain.Post) (*domain.RevisionItem, error) {
	item, err := s.buildItem(revision)
	if err != nil {
		return nil, err
	}

	if item.NPStatus == "" {
		item.NPStatus = domain.AnnotationUnknown
	}
	if item.NPStatus == domain.AnnotationPublish {
		item.Status = domain.StatusPublish
	}

	s.hooks.Do(plugin.ActionRESTRevisionItem, map[string]interface{}{"item": item})

	return item, nil
}

func (s *articleService) buildItem(post *domain.Post) (*domain.RevisionItem, error) {
	npStatus, err := s.meta.Get(post.ID, domain.MetaKeyStatus)
	if err != nil {
		return nil, err
	}
	npCount, err := s.meta.Get(post.ID, domain.MetaKeyCount)
	if err != nil {
		return nil, err
	}
	count, _ := strconv.Atoi(npCount)

	metaMap, err := s.meta.GetAll(post.ID)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]interface{}, len(metaMap)+1)
	for key, value := range metaMap {
		meta[key] = value
	}
	meta[domain.MetaKeyEditLink] = s.editLink(post.ID)

	saveData, err := s.metaService.SaveData(post.ID)
	if err != nil {
		return nil, err
	}

	return &domain.RevisionItem{
		ID:         post.ID,
		Parent:     post.ParentID,
		Date:       post.CreatedAt.Format(time.RFC3339),
		Modified:   post.ModifiedAt.Format(time.RFC3339),
		Slug:       post.Name,
		Status:     post.Status,
		Title:      post.Title,
		Content:    post.Content,
		Excerpt:    post.Excerpt,
		Author:     post.AuthorID,
		NPStatus:   npStatus,
		NPCount:    count,
		Meta:       meta,
		SaveData:   saveData,
		AuthorData: s.authorData(post, metaMap),
	}, nil
}

// authorData resolves who performed the save: the saved_by annotation when
// present, the row author otherwise.
func (s *articleService) authorData(post *domain.Post, meta map[string]string) *domain.AuthorData {
	authorID := post.AuthorID
	if savedBy, ok := meta[domain.MetaKeySavedBy]; ok && savedBy != "" {
		if parsed, err := strconv.ParseUint(savedBy, 10, 64); err == nil && parsed != 0 {
			authorID = parsed
		}
	}
	if authorID == 0 {
		return &domain.AuthorData{}
	}

	data := &domain.AuthorData{ID: authorID}
	user, err := s.users.FindByID(authorID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("author lookup failed for user %d: %v", authorID, err)
		}
		return data
	}
	data.Name = user.DisplayName
	return data
}

func (s *articleService) editLink(postID uint64) string {
	if s.editLinkFmt == "" {
		return ""
	}
	return fmt.Sprintf(s.editLinkFmt, postID)
}
