package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/common"
	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/plugin"
	"github.com/newspress/revisions-backend/internal/repository"
	"github.com/newspress/revisions-backend/pkg/cache"
	"github.com/newspress/revisions-backend/pkg/logger"
)

// MetaService propagates annotation metadata between posts and their
// revisions. Every revision insert runs through OnRevisionCreated, which
// classifies the status transition and stamps both sides.
type MetaService interface {
	// OnRevisionCreated stamps annotation meta after a revision row is
	// inserted. Autosaves only refresh the autosave index.
	OnRevisionCreated(ctx context.Context, revisionID uint64, actingUserID uint64) error
	// ShouldCreateRevision decides whether a save warrants a revision
	// snapshot when the content fields themselves did not change.
	ShouldCreateRevision(sctx domain.SaveContext, post *domain.Post, lastRevision *domain.Post, contentChanged bool) (bool, error)
	// SyncRevisionMeta mirrors a parent's meta onto one of its revisions
	SyncRevisionMeta(revision *domain.Post) error
	// UpdateAutosave annotates an autosave and applies client meta,
	// refusing writes to bookkeeping keys
	UpdateAutosave(ctx context.Context, autosaveID uint64, meta map[string]interface{}, actingUserID uint64) error
	// SaveData assembles the provenance block for a post or revision
	SaveData(postID uint64) (*domain.SaveData, error)
	// AutosaveIDs returns the autosave revision ids of a parent post,
	// rebuilding the stored index on demand
	AutosaveIDs(ctx context.Context, parentID uint64, forceUpdate bool) ([]uint64, error)
	// RevisionsCount returns the stored revision count, recounting rows
	// annotated with status when forced or unset
	RevisionsCount(parentID uint64, forceUpdate bool, status string) (int, error)
}

type metaService struct {
	posts repository.PostRepository
	meta  repository.MetaRepository
	hooks *plugin.HookManager
	cache cache.Service

	compareMetaKeys []string
	metaDefaults    map[string]string
}

// NewMetaService creates a new MetaService. compareMetaKeys lists additional
// meta keys whose changes force a revision; metaDefaults supplies fallback
// values for keys absent on older revisions.
func NewMetaService(
	posts repository.PostRepository,
	meta repository.MetaRepository,
	hooks *plugin.HookManager,
	cacheService cache.Service,
	compareMetaKeys []string,
	metaDefaults map[string]string,
) MetaService {
	return &metaService{
		posts:           posts,
		meta:            meta,
		hooks:           hooks,
		cache:           cacheService,
		compareMetaKeys: compareMetaKeys,
		metaDefaults:    metaDefaults,
	}
}

// OnRevisionCreated stamps annotation meta after a revision row is inserted
func (s *metaService) OnRevisionCreated(ctx context.Context, revisionID uint64, actingUserID uint64) error {
	revision, err := s.posts.FindByID(revisionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	// Autosaves carry no status annotations, only the index changes.
	if revision.IsAutosave() {
		if _, err := s.AutosaveIDs(ctx, revision.ParentID, true); err != nil {
			return err
		}
		s.invalidateArticle(ctx, revision.ParentID)
		return nil
	}

	post, err := s.posts.FindByID(revision.ParentID)
	if err != nil {
		return err
	}

	oldStatus, err := s.meta.Get(post.ID, domain.MetaKeyLastStatus)
	if err != nil {
		return err
	}
	newStatus := post.Status

	if err := s.meta.Set(revision.ID, domain.MetaKeyLastStatus, newStatus); err != nil {
		return err
	}
	if err := s.meta.Set(post.ID, domain.MetaKeyLastStatus, newStatus); err != nil {
		return err
	}

	status := newStatus
	if newStatus == domain.StatusDraft || newStatus == domain.StatusAutoDraft {
		status = domain.AnnotationDraft
	}
	transition := "0"

	if newStatus == domain.StatusPublish && oldStatus != newStatus {
		status = domain.AnnotationPublish
		transition = "1"
	}
	if newStatus == domain.StatusPublish && oldStatus == newStatus {
		status = domain.AnnotationUpdate
	}

	// A scheduled publish runs with no acting user; credit the editor who
	// scheduled it by reading the newest revision annotated as future.
	savedByID := actingUserID
	if oldStatus == domain.StatusFuture && newStatus == domain.StatusPublish {
		scheduledBy, err := s.scheduledBy(post.ID)
		if err != nil {
			return err
		}
		if scheduledBy != 0 {
			savedByID = scheduledBy
		} else {
			logger.Warn("no scheduled revision found for post %d, keeping acting user %d", post.ID, actingUserID)
		}
	}

	if err := s.meta.Set(post.ID, domain.MetaKeySavedBy, strconv.FormatUint(savedByID, 10)); err != nil {
		return err
	}
	if err := s.meta.Set(post.ID, domain.MetaKeyTransition, transition); err != nil {
		return err
	}

	out := s.hooks.Apply(plugin.FilterRevisionStatus, map[string]interface{}{
		"status":     status,
		"post_id":    post.ID,
		"old_status": oldStatus,
	})
	if filtered, ok := out["status"].(string); ok && filtered != "" {
		status = filtered
	}

	if err := s.meta.Set(post.ID, domain.MetaKeyStatus, status); err != nil {
		return err
	}

	s.hooks.Do(plugin.ActionPostStatusChange, map[string]interface{}{
		"post_id":    post.ID,
		"new_status": newStatus,
		"old_status": oldStatus,
	})

	count, err := s.RevisionsCount(post.ID, true, status)
	if err != nil {
		return err
	}
	if err := s.meta.Set(post.ID, domain.MetaKeyCount, strconv.Itoa(count+1)); err != nil {
		return err
	}

	if err := s.SyncRevisionMeta(revision); err != nil {
		return err
	}

	// The aggregate changed shape; the next read rebuilds it.
	s.invalidateArticle(ctx, post.ID)
	return nil
}

func (s *metaService) invalidateArticle(ctx context.Context, postID uint64) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}
	if err := s.cache.InvalidateArticle(ctx, postID); err != nil {
		logger.Warn("failed to invalidate article cache for post %d: %v", postID, err)
	}
}

// scheduledBy returns the saved_by of the newest revision annotated future,
// or 0 when there is none.
func (s *metaService) scheduledBy(postID uint64) (uint64, error) {
	scheduled, err := s.posts.LatestRevisionWithMeta(postID, domain.MetaKeyStatus, domain.AnnotationFuture)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	savedBy, err := s.meta.Get(scheduled.ID, domain.MetaKeySavedBy)
	if err != nil {
		return 0, err
	}
	if savedBy == "" {
		return 0, nil
	}

	id, err := strconv.ParseUint(savedBy, 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

// ShouldCreateRevision decides whether a save warrants a revision snapshot
func (s *metaService) ShouldCreateRevision(sctx domain.SaveContext, post *domain.Post, lastRevision *domain.Post, contentChanged bool) (bool, error) {
	if !sctx.ForceCreate {
		return false, nil
	}
	if sctx.Restoring {
		return true, nil
	}
	if contentChanged {
		return true, nil
	}
	if lastRevision == nil {
		return true, nil
	}

	compareKeys := s.compareMetaKeys
	out := s.hooks.Apply(plugin.FilterMetaCompare, map[string]interface{}{"keys": compareKeys})
	if filtered, ok := out["keys"].([]string); ok {
		compareKeys = filtered
	}

	for _, key := range compareKeys {
		oldValue, err := s.meta.Get(lastRevision.ID, key)
		if err != nil {
			return false, err
		}
		if oldValue == "" {
			oldValue = s.metaDefaults[key]
		}

		newValue, err := s.meta.Get(post.ID, key)
		if err != nil {
			return false, err
		}

		if oldValue != newValue {
			return true, nil
		}
	}

	lastStatus, err := s.meta.Get(lastRevision.ID, domain.MetaKeyLastStatus)
	if err != nil {
		return false, err
	}
	return lastStatus != post.Status, nil
}

// SyncRevisionMeta mirrors a parent's meta onto one of its revisions. The
// revision's last_post_status records the parent's current post status.
func (s *metaService) SyncRevisionMeta(revision *domain.Post) error {
	parent, err := s.posts.FindByID(revision.ParentID)
	if err != nil {
		return err
	}

	if err := s.meta.Set(revision.ID, domain.MetaKeyLastStatus, parent.Status); err != nil {
		return err
	}

	parentMeta, err := s.meta.GetAll(parent.ID)
	if err != nil {
		return err
	}

	for key, value := range parentMeta {
		if err := s.meta.Set(revision.ID, key, value); err != nil {
			return err
		}
	}
	return nil
}

// UpdateAutosave annotates an autosave and applies client meta
func (s *metaService) UpdateAutosave(ctx context.Context, autosaveID uint64, meta map[string]interface{}, actingUserID uint64) error {
	autosave, err := s.posts.FindByID(autosaveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrInvalidRevisionID
		}
		return err
	}
	if !autosave.IsAutosave() {
		return common.ErrInvalidRevisionID
	}

	if err := s.meta.Set(autosaveID, domain.MetaKeyStatus, domain.AnnotationAutosave); err != nil {
		return err
	}
	if err := s.meta.Set(autosaveID, domain.MetaKeySavedBy, strconv.FormatUint(actingUserID, 10)); err != nil {
		return err
	}

	ignore := s.metaToIgnore()
	for key, value := range meta {
		if contains(ignore, key) {
			continue
		}
		if err := s.meta.Set(autosaveID, key, stringifyMeta(value)); err != nil {
			return err
		}
	}

	_, err = s.AutosaveIDs(ctx, autosave.ParentID, true)
	return err
}

// metaToIgnore returns the bookkeeping keys after the override filter ran.
func (s *metaService) metaToIgnore() []string {
	keys := domain.BookkeepingKeys()
	out := s.hooks.Apply(plugin.FilterMetaToIgnore, map[string]interface{}{"keys": keys})
	if filtered, ok := out["keys"].([]string); ok {
		keys = filtered
	}
	return keys
}

// SaveData assembles the provenance block for a post or revision
func (s *metaService) SaveData(postID uint64) (*domain.SaveData, error) {
	savedBy, err := s.meta.Get(postID, domain.MetaKeySavedBy)
	if err != nil {
		return nil, err
	}
	transitioned, err := s.meta.Get(postID, domain.MetaKeyTransition)
	if err != nil {
		return nil, err
	}
	lastStatus, err := s.meta.Get(postID, domain.MetaKeyLastStatus)
	if err != nil {
		return nil, err
	}

	savedByID, _ := strconv.ParseUint(savedBy, 10, 64)

	data := &domain.SaveData{
		SavedByID:        savedByID,
		SaveTransitioned: transitioned == "1",
		LastPostStatus:   lastStatus,
	}

	revertedFrom, err := s.meta.Get(postID, domain.MetaKeyRevertedFrom)
	if err != nil {
		return nil, err
	}

	switch {
	case revertedFrom == domain.RevertedFromAutosave:
		data.RevertedFrom = domain.AnnotationAutosave
	case revertedFrom != "":
		sourceID, parseErr := strconv.ParseUint(revertedFrom, 10, 64)
		if parseErr != nil {
			break
		}
		sourceStatus, err := s.meta.Get(sourceID, domain.MetaKeyStatus)
		if err != nil {
			return nil, err
		}
		sourceCount, err := s.meta.Get(sourceID, domain.MetaKeyCount)
		if err != nil {
			return nil, err
		}
		sourceTransition, err := s.meta.Get(sourceID, domain.MetaKeyTransition)
		if err != nil {
			return nil, err
		}
		count, _ := strconv.Atoi(sourceCount)
		data.RevertedFrom = &domain.RevertedFromData{
			ID:               sourceID,
			Status:           sourceStatus,
			Count:            count,
			SaveTransitioned: sourceTransition,
		}
	}

	return data, nil
}

// AutosaveIDs returns the autosave revision ids of a parent post
func (s *metaService) AutosaveIDs(ctx context.Context, parentID uint64, forceUpdate bool) ([]uint64, error) {
	if parentID < 1 {
		return []uint64{}, nil
	}

	if !forceUpdate {
		if s.cache != nil && s.cache.IsAvailable() {
			if ids, err := s.cache.GetAutosaveIDs(ctx, parentID); err == nil {
				return ids, nil
			}
		}

		stored, err := s.meta.Get(parentID, domain.MetaKeyAutosaveIDs)
		if err != nil {
			return nil, err
		}
		if stored != "" {
			var ids []uint64
			if err := json.Unmarshal([]byte(stored), &ids); err == nil {
				return ids, nil
			}
		}
	}

	autosaves, err := s.posts.Autosaves(parentID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(autosaves))
	for _, autosave := range autosaves {
		ids = append(ids, autosave.ID)
	}

	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	if err := s.meta.Set(parentID, domain.MetaKeyAutosaveIDs, string(encoded)); err != nil {
		return nil, err
	}
	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.SetAutosaveIDs(ctx, parentID, ids); err != nil {
			logger.Warn("failed to cache autosave ids for post %d: %v", parentID, err)
		}
	}

	return ids, nil
}

// RevisionsCount returns the stored revision count, recounting on demand
func (s *metaService) RevisionsCount(parentID uint64, forceUpdate bool, status string) (int, error) {
	if !forceUpdate {
		stored, err := s.meta.Get(parentID, domain.MetaKeyCount)
		if err != nil {
			return 0, err
		}
		if stored != "" {
			if count, err := strconv.Atoi(stored); err == nil {
				return count, nil
			}
		}
	}

	count, err := s.posts.CountRevisionsByStatus(parentID, status)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// stringifyMeta stores strings as-is and JSON-encodes everything else.
func stringifyMeta(value interface{}) string {
	if str, ok := value.(string); ok {
		return str
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
