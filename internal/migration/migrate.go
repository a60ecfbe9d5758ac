package migration

import (
	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/domain"
)

// Migrate creates or updates the schema for the revision tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Post{},
		&domain.PostMeta{},
	)
}
