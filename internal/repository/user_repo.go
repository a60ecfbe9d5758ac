package repository

import (
	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/domain"
)

// UserRepository handles user lookups
type UserRepository interface {
	// FindByID returns a user by primary key
	FindByID(id uint64) (*domain.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID returns a user by primary key
func (r *userRepository) FindByID(id uint64) (*domain.User, error) {
	var user domain.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
