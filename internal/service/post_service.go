package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/repository"
)

// PostService is the save pipeline. Every post update flows through SavePost,
// which snapshots a revision when the content or tracked meta changed and
// hands the new revision to the meta propagation engine.
type PostService interface {
	// CreatePost inserts a new post
	CreatePost(ctx context.Context, req *domain.CreatePostRequest, authorID uint64) (*domain.Post, error)
	// GetPost returns a post by id
	GetPost(id uint64) (*domain.Post, error)
	// SavePost applies an editor save and maybe snapshots a revision
	SavePost(ctx context.Context, sctx domain.SaveContext, postID uint64, req *domain.SavePostRequest, actingUserID uint64) (*domain.Post, error)
	// SaveAutosave upserts the autosave revision of a post
	SaveAutosave(ctx context.Context, postID uint64, req *domain.SavePostRequest, actingUserID uint64) (*domain.Post, error)
	// RestoreRevisionContent writes a revision's content back onto its
	// parent and snapshots the result as a new revision
	RestoreRevisionContent(ctx context.Context, post *domain.Post, revision *domain.Post, actingUserID uint64) (*domain.Post, error)
	// PublishScheduled re-saves a scheduled post as published so the
	// transition is captured as a revision
	PublishScheduled(ctx context.Context, postID uint64, actingUserID uint64) (*domain.Post, error)
}

type postService struct {
	posts repository.PostRepository
	meta  MetaService
}

// NewPostService creates a new PostService
func NewPostService(posts repository.PostRepository, meta MetaService) PostService {
	return &postService{posts: posts, meta: meta}
}

// CreatePost inserts a new post
func (s *postService) CreatePost(ctx context.Context, req *domain.CreatePostRequest, authorID uint64) (*domain.Post, error) {
	postType := req.PostType
	if postType == "" {
		postType = domain.TypePost
	}
	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}

	post := &domain.Post{
		PostType:   postType,
		Status:     status,
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		AuthorID:   authorID,
		ModifiedAt: time.Now(),
	}
	if err := s.posts.Create(post); err != nil {
		return nil, err
	}

	// The first save of a fresh post snapshots immediately so the meta
	// pipeline annotates it from the very first revision.
	if _, err := s.snapshotRevision(ctx, post, authorID); err != nil {
		return nil, err
	}

	return post, nil
}

// GetPost returns a post by id
func (s *postService) GetPost(id uint64) (*domain.Post, error) {
	post, err := s.posts.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

// SavePost applies an editor save and maybe snapshots a revision
func (s *postService) SavePost(ctx context.Context, sctx domain.SaveContext, postID uint64, req *domain.SavePostRequest, actingUserID uint64) (*domain.Post, error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post.PostType == domain.TypeRevision {
		return nil, common.ErrPostNotFound
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.Excerpt != nil {
		post.Excerpt = *req.Excerpt
	}
	if req.Status != nil {
		post.Status = *req.Status
	}
	post.ModifiedAt = time.Now()

	if err := s.posts.Update(post); err != nil {
		return nil, err
	}

	// An explicit save of an existing post always arms revision creation.
	sctx.ForceCreate = true

	if err := s.maybeSnapshot(ctx, sctx, post, actingUserID); err != nil {
		return nil, err
	}

	return post, nil
}

// maybeSnapshot asks the meta engine whether the save deserves a revision
// and creates one when it does.
func (s *postService) maybeSnapshot(ctx context.Context, sctx domain.SaveContext, post *domain.Post, actingUserID uint64) error {
	lastRevision, err := s.posts.LatestRevision(post.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		lastRevision = nil
	}

	contentChanged := lastRevision == nil ||
		lastRevision.Title != post.Title ||
		lastRevision.Content != post.Content ||
		lastRevision.Excerpt != post.Excerpt

	shouldCreate, err := s.meta.ShouldCreateRevision(sctx, post, lastRevision, contentChanged)
	if err != nil {
		return err
	}
	if !shouldCreate {
		return nil
	}

	_, err = s.snapshotRevision(ctx, post, actingUserID)
	return err
}

// snapshotRevision inserts a named revision row mirroring the post and runs
// the meta propagation engine over it.
func (s *postService) snapshotRevision(ctx context.Context, post *domain.Post, actingUserID uint64) (*domain.Post, error) {
	revision := &domain.Post{
		ParentID:   post.ID,
		PostType:   domain.TypeRevision,
		Status:     domain.StatusInherit,
		Name:       domain.RevisionName(post.ID),
		Title:      post.Title,
		Content:    post.Content,
		Excerpt:    post.Excerpt,
		AuthorID:   actingUserID,
		ModifiedAt: time.Now(),
	}
	if err := s.posts.Create(revision); err != nil {
		return nil, err
	}

	if err := s.meta.OnRevisionCreated(ctx, revision.ID, actingUserID); err != nil {
		return nil, err
	}
	return revision, nil
}

// SaveAutosave upserts the autosave revision of a post
func (s *postService) SaveAutosave(ctx context.Context, postID uint64, req *domain.SavePostRequest, actingUserID uint64) (*domain.Post, error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post.PostType == domain.TypeRevision {
		return nil, common.ErrPostNotFound
	}

	autosaves, err := s.posts.Autosaves(postID)
	if err != nil {
		return nil, err
	}

	// One autosave slot per author, newest first.
	var autosave *domain.Post
	for i := range autosaves {
		if autosaves[i].AuthorID == actingUserID {
			autosave = &autosaves[i]
			break
		}
	}

	if autosave == nil {
		autosave = &domain.Post{
			ParentID: postID,
			PostType: domain.TypeRevision,
			Status:   domain.StatusInherit,
			Name:     domain.AutosaveName(postID),
			AuthorID: actingUserID,
		}
	}

	autosave.Title = post.Title
	autosave.Content = post.Content
	autosave.Excerpt = post.Excerpt
	if req.Title != nil {
		autosave.Title = *req.Title
	}
	if req.Content != nil {
		autosave.Content = *req.Content
	}
	if req.Excerpt != nil {
		autosave.Excerpt = *req.Excerpt
	}
	autosave.ModifiedAt = time.Now()

	if autosave.ID == 0 {
		err = s.posts.Create(autosave)
	} else {
		err = s.posts.Update(autosave)
	}
	if err != nil {
		return nil, err
	}

	if err := s.meta.OnRevisionCreated(ctx, autosave.ID, actingUserID); err != nil {
		return nil, err
	}
	return autosave, nil
}

// RestoreRevisionContent writes a revision's content back onto its parent
func (s *postService) RestoreRevisionContent(ctx context.Context, post *domain.Post, revision *domain.Post, actingUserID uint64) (*domain.Post, error) {
	post.Title = revision.Title
	post.Content = revision.Content
	post.Excerpt = revision.Excerpt
	post.ModifiedAt = time.Now()

	if err := s.posts.Update(post); err != nil {
		return nil, err
	}

	return s.snapshotRevision(ctx, post, actingUserID)
}

// PublishScheduled re-saves a scheduled post as published. A scheduler tick
// is a status-only change, so the snapshot is forced through the restore-free
// save path.
func (s *postService) PublishScheduled(ctx context.Context, postID uint64, actingUserID uint64) (*domain.Post, error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post.Status != domain.StatusFuture {
		return post, nil
	}

	status := domain.StatusPublish
	return s.SavePost(ctx, domain.SaveContext{ForceCreate: true}, postID, &domain.SavePostRequest{Status: &status}, actingUserID)
}
