package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/domain"
)

// PostRepository handles post and revision row operations
type PostRepository interface {
	// FindByID returns a post by primary key
	FindByID(id uint64) (*domain.Post, error)
	// Create inserts a new post row
	Create(post *domain.Post) error
	// Update saves changed fields of an existing post
	Update(post *domain.Post) error
	// ListRevisions returns named revisions of a parent newest-first,
	// excluding autosaves and the given ids, with the total count
	ListRevisions(parentID uint64, page, perPage int, exclude []uint64) ([]domain.Post, int64, error)
	// LatestRevision returns the newest named revision of a parent
	LatestRevision(parentID uint64) (*domain.Post, error)
	// LatestRevisionWithMeta returns the newest named revision of a parent
	// carrying the given meta key/value pair
	LatestRevisionWithMeta(parentID uint64, metaKey, metaValue string) (*domain.Post, error)
	// Autosaves returns the autosave revisions of a parent newest-first
	Autosaves(parentID uint64) ([]domain.Post, error)
	// CountRevisionsByStatus counts named revisions of a parent annotated
	// with the given status
	CountRevisionsByStatus(parentID uint64, status string) (int64, error)
	// DeleteRevision removes a revision row and its meta
	DeleteRevision(id uint64) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// FindByID returns a post by primary key
func (r *postRepository) FindByID(id uint64) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Create inserts a new post row
func (r *postRepository) Create(post *domain.Post) error {
	return r.db.Create(post).Error
}

// Update saves changed fields of an existing post
func (r *postRepository) Update(post *domain.Post) error {
	return r.db.Save(post).Error
}

// revisionScope narrows a query to the named revisions of a parent.
// Autosaves share post_type but carry the autosave name suffix.
func revisionScope(db *gorm.DB, parentID uint64) *gorm.DB {
	return db.Model(&domain.Post{}).
		Where("parent_id = ? AND post_type = ?", parentID, domain.TypeRevision).
		Where("name NOT LIKE ?", "%-autosave-v%")
}

// ListRevisions returns named revisions of a parent newest-first
func (r *postRepository) ListRevisions(parentID uint64, page, perPage int, exclude []uint64) ([]domain.Post, int64, error) {
	query := revisionScope(r.db, parentID)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var revisions []domain.Post
	err := query.
		Order("modified_at DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&revisions).Error
	if err != nil {
		return nil, 0, err
	}
	return revisions, total, nil
}

// LatestRevision returns the newest named revision of a parent
func (r *postRepository) LatestRevision(parentID uint64) (*domain.Post, error) {
	var revision domain.Post
	err := revisionScope(r.db, parentID).
		Order("modified_at DESC, id DESC").
		First(&revision).Error
	if err != nil {
		return nil, err
	}
	return &revision, nil
}

// LatestRevisionWithMeta returns the newest named revision of a parent
// carrying the given meta key/value pair
func (r *postRepository) LatestRevisionWithMeta(parentID uint64, metaKey, metaValue string) (*domain.Post, error) {
	var revision domain.Post
	err := revisionScope(r.db, parentID).
		Joins("JOIN post_meta pm ON pm.post_id = posts.id").
		Where("pm.meta_key = ? AND pm.meta_value = ?", metaKey, metaValue).
		Order("posts.modified_at DESC, posts.id DESC").
		First(&revision).Error
	if err != nil {
		return nil, err
	}
	return &revision, nil
}

// Autosaves returns the autosave revisions of a parent newest-first
func (r *postRepository) Autosaves(parentID uint64) ([]domain.Post, error) {
	var autosaves []domain.Post
	err := r.db.
		Where("parent_id = ? AND post_type = ?", parentID, domain.TypeRevision).
		Where("name LIKE ?", fmt.Sprintf("%d-autosave-v%%", parentID)).
		Order("modified_at DESC, id DESC").
		Find(&autosaves).Error
	if err != nil {
		return nil, err
	}
	return autosaves, nil
}

// CountRevisionsByStatus counts named revisions of a parent annotated with
// the given status
func (r *postRepository) CountRevisionsByStatus(parentID uint64, status string) (int64, error) {
	var count int64
	err := revisionScope(r.db, parentID).
		Joins("JOIN post_meta pm ON pm.post_id = posts.id").
		Where("pm.meta_key = ? AND pm.meta_value = ?", domain.MetaKeyStatus, status).
		Count(&count).Error
	return count, err
}

// DeleteRevision removes a revision row and its meta
func (r *postRepository) DeleteRevision(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.PostMeta{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Post{}, id).Error
	})
}
