package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newspress/revisions-backend/internal/domain"
)

// MetaRepository handles post meta key/value operations
type MetaRepository interface {
	// Get returns a single meta value, or "" when the key is absent
	Get(postID uint64, key string) (string, error)
	// GetAll returns every meta entry for a post as a map
	GetAll(postID uint64) (map[string]string, error)
	// Set upserts a meta entry
	Set(postID uint64, key, value string) error
	// Delete removes the given meta keys from a post
	Delete(postID uint64, keys ...string) error
}

type metaRepository struct {
	db *gorm.DB
}

// NewMetaRepository creates a new MetaRepository
func NewMetaRepository(db *gorm.DB) MetaRepository {
	return &metaRepository{db: db}
}

// Get returns a single meta value, or "" when the key is absent
func (r *metaRepository) Get(postID uint64, key string) (string, error) {
	var meta domain.PostMeta
	err := r.db.Where("post_id = ? AND meta_key = ?", postID, key).
		First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// GetAll returns every meta entry for a post as a map
func (r *metaRepository) GetAll(postID uint64) (map[string]string, error) {
	var entries []domain.PostMeta
	if err := r.db.Where("post_id = ?", postID).Find(&entries).Error; err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(entries))
	for _, entry := range entries {
		meta[entry.Key] = entry.Value
	}
	return meta, nil
}

// Set upserts a meta entry
func (r *metaRepository) Set(postID uint64, key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_value"}),
	}).Create(&domain.PostMeta{
		PostID: postID,
		Key:    key,
		Value:  value,
	}).Error
}

// Delete removes the given meta keys from a post
func (r *metaRepository) Delete(postID uint64, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.Where("post_id = ? AND meta_key IN ?", postID, keys).
		Delete(&domain.PostMeta{}).Error
}
