package service

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/plugin"
	"github.com/newspress/revisions-backend/internal/repository"
	"github.com/newspress/revisions-backend/pkg/cache"
	"github.com/newspress/revisions-backend/pkg/logger"
)

// RestoreService reverts posts to earlier revisions and keeps the annotation
// trail coherent while doing so.
type RestoreService interface {
	// Restore reverts a post to the given revision and returns the parent
	// post id
	Restore(ctx context.Context, revisionID uint64, userID uint64) (uint64, error)
	// CanRestore reports whether a user may restore revisions of a post,
	// returning a typed error naming the reason when not
	CanRestore(ctx context.Context, postID uint64, userID uint64) error
	// IsLocked reports whether another user holds the post's edit lock
	IsLocked(ctx context.Context, postID uint64, userID uint64) bool
	// PurgeStaleAutosaves deletes autosaves older than the post's last
	// modification
	PurgeStaleAutosaves(ctx context.Context, postID uint64) error
}

type restoreService struct {
	posts repository.PostRepository
	meta  repository.MetaRepository
	locks repository.LockRepository

	metaService MetaService
	postService PostService
	hooks       *plugin.HookManager
	cache       cache.Service
}

// NewRestoreService creates a new RestoreService
func NewRestoreService(
	posts repository.PostRepository,
	meta repository.MetaRepository,
	locks repository.LockRepository,
	metaService MetaService,
	postService PostService,
	hooks *plugin.HookManager,
	cacheService cache.Service,
) RestoreService {
	return &restoreService{
		posts:       posts,
		meta:        meta,
		locks:       locks,
		metaService: metaService,
		postService: postService,
		hooks:       hooks,
		cache:       cacheService,
	}
}

// CanRestore reports whether a user may restore revisions of a post
func (s *restoreService) CanRestore(ctx context.Context, postID uint64, userID uint64) error {
	if userID == 0 {
		return common.ErrRestoreForbidden
	}

	post, err := s.posts.FindByID(postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrParentNotFound
		}
		return err
	}
	if post.PostType == domain.TypeRevision {
		return common.ErrParentNotFound
	}

	if s.IsLocked(ctx, postID, userID) {
		return common.ErrPostLocked
	}
	return nil
}

// IsLocked reports whether another user holds the post's edit lock
func (s *restoreService) IsLocked(ctx context.Context, postID uint64, userID uint64) bool {
	locked, err := s.locks.IsLockedByOther(ctx, postID, userID)
	if err != nil {
		logger.Warn("edit lock check failed for post %d: %v", postID, err)
		return false
	}
	return locked
}

// Restore reverts a post to the given revision. The flow mirrors what the
// editor expects on the timeline: content comes back, annotation meta is
// replaced with the revision's, the parent is marked reverted with a
// back-reference, and stale autosaves disappear.
func (s *restoreService) Restore(ctx context.Context, revisionID uint64, userID uint64) (uint64, error) {
	revision, err := s.posts.FindByID(revisionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, common.ErrInvalidRevisionID
		}
		return 0, err
	}
	if !revision.IsRevision() {
		return 0, common.ErrInvalidRevisionID
	}

	if err := s.CanRestore(ctx, revision.ParentID, userID); err != nil {
		return 0, err
	}

	post, err := s.posts.FindByID(revision.ParentID)
	if err != nil {
		return 0, err
	}

	if _, err := s.postService.RestoreRevisionContent(ctx, post, revision, userID); err != nil {
		return 0, err
	}

	if err := s.replacePostMeta(post.ID, revisionID); err != nil {
		return 0, err
	}

	npStatus, err := s.meta.Get(revisionID, domain.MetaKeyStatus)
	if err != nil {
		return 0, err
	}
	isAutosave := revision.IsAutosave()

	// Restoring from an already-reverted revision points the back-reference
	// at that revision's own source, so the timeline reads "Reverted from
	// Draft 1" instead of "Reverted from Reverted".
	sourceID := revisionID
	if npStatus == domain.AnnotationReverted {
		revertedFrom, err := s.meta.Get(revisionID, domain.MetaKeyRevertedFrom)
		if err != nil {
			return 0, err
		}
		if parsed, parseErr := strconv.ParseUint(revertedFrom, 10, 64); parseErr == nil {
			sourceID = parsed
		}
	}

	// "0" marks a restore from an autosave rather than a named revision.
	revertedFromValue := strconv.FormatUint(sourceID, 10)
	if isAutosave {
		revertedFromValue = domain.RevertedFromAutosave
	}

	if err := s.meta.Set(post.ID, domain.MetaKeyRevertedFrom, revertedFromValue); err != nil {
		return 0, err
	}

	latest, err := s.posts.LatestRevision(post.ID)
	if err == nil {
		if err := s.meta.Set(latest.ID, domain.MetaKeyRevertedFrom, revertedFromValue); err != nil {
			return 0, err
		}
		if err := s.meta.Set(latest.ID, domain.MetaKeyStatus, domain.AnnotationReverted); err != nil {
			return 0, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	// The restore moved the post forward; every autosave is now stale.
	if err := s.PurgeStaleAutosaves(ctx, post.ID); err != nil {
		return 0, err
	}

	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.InvalidateArticle(ctx, post.ID); err != nil {
			logger.Warn("failed to invalidate article cache for post %d: %v", post.ID, err)
		}
	}

	return revision.ParentID, nil
}

// replacePostMeta swaps the parent's meta for the restored revision's meta.
// Bookkeeping keys survive on the parent, and the fresh snapshot revision
// receives the full restored meta set.
func (s *restoreService) replacePostMeta(postID uint64, revisionID uint64) error {
	exclusions := s.metaExclusions(postID)

	revisionMeta, err := s.meta.GetAll(revisionID)
	if err != nil {
		return err
	}
	postMeta, err := s.meta.GetAll(postID)
	if err != nil {
		return err
	}
	for _, key := range exclusions {
		delete(revisionMeta, key)
		delete(postMeta, key)
	}

	ignore := s.metaToIgnore(postID, revisionID)

	for key := range postMeta {
		if _, kept := revisionMeta[key]; kept {
			continue
		}
		if contains(ignore, key) {
			continue
		}
		if err := s.meta.Delete(postID, key); err != nil {
			return err
		}
	}

	if err := s.meta.Set(postID, domain.MetaKeyStatus, domain.AnnotationReverted); err != nil {
		return err
	}

	var latestID uint64
	if latest, err := s.posts.LatestRevision(postID); err == nil {
		latestID = latest.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	for key, value := range revisionMeta {
		if latestID != 0 {
			if err := s.meta.Set(latestID, key, value); err != nil {
				return err
			}
		}

		if existing, ok := postMeta[key]; ok && existing == value {
			continue
		}
		if contains(ignore, key) {
			continue
		}
		if err := s.meta.Set(postID, key, value); err != nil {
			return err
		}
	}
	return nil
}

// metaExclusions returns keys stripped from both sides before comparison.
func (s *restoreService) metaExclusions(postID uint64) []string {
	keys := []string{domain.MetaKeyTransition, domain.MetaKeyStatus}
	out := s.hooks.Apply(plugin.FilterMetaExclusions, map[string]interface{}{
		"keys":    keys,
		"post_id": postID,
	})
	if filtered, ok := out["keys"].([]string); ok {
		keys = filtered
	}
	return keys
}

// metaToIgnore returns the parent-side keys never deleted or overwritten.
func (s *restoreService) metaToIgnore(postID, revisionID uint64) []string {
	keys := domain.BookkeepingKeys()
	out := s.hooks.Apply(plugin.FilterMetaToIgnore, map[string]interface{}{
		"keys":        keys,
		"post_id":     postID,
		"revision_id": revisionID,
	})
	if filtered, ok := out["keys"].([]string); ok {
		keys = filtered
	}
	return keys
}

// PurgeStaleAutosaves deletes autosaves no newer than the post itself
func (s *restoreService) PurgeStaleAutosaves(ctx context.Context, postID uint64) error {
	autosaves, err := s.posts.Autosaves(postID)
	if err != nil {
		return err
	}
	if len(autosaves) == 0 {
		return nil
	}

	post, err := s.posts.FindByID(postID)
	if err != nil {
		return err
	}

	purged := false
	for _, autosave := range autosaves {
		if autosave.ModifiedAt.After(post.ModifiedAt) {
			continue
		}
		if err := s.posts.DeleteRevision(autosave.ID); err != nil {
			return err
		}
		purged = true
	}

	if purged {
		if _, err := s.metaService.AutosaveIDs(ctx, postID, true); err != nil {
			return err
		}
	}
	return nil
}
