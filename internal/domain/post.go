package domain

import (
	"fmt"
	"strings"
	"time"
)

// Post statuses. Revisions always carry StatusInherit and take their
// meaning from the annotation metadata instead.
const (
	StatusAutoDraft = "auto-draft"
	StatusDraft     = "draft"
	StatusPublish   = "publish"
	StatusFuture    = "future"
	StatusTrash     = "trash"
	StatusInherit   = "inherit"
)

// Post types stored in the posts table.
const (
	TypePost     = "post"
	TypeRevision = "revision"
)

// Post is a row in the posts table. Revisions share the table with their
// parents: a revision row has PostType "revision", ParentID set and a Name
// following the revision/autosave naming convention.
type Post struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ParentID   uint64    `gorm:"column:parent_id;index" json:"parent"`
	PostType   string    `gorm:"column:post_type;type:varchar(20);index" json:"type"`
	Status     string    `gorm:"column:status;type:varchar(20);index" json:"post_status"`
	Name       string    `gorm:"column:name;type:varchar(200);index" json:"slug"`
	Title      string    `gorm:"column:title;type:varchar(255)" json:"title"`
	Content    string    `gorm:"column:content;type:mediumtext" json:"content"`
	Excerpt    string    `gorm:"column:excerpt;type:text" json:"excerpt"`
	AuthorID   uint64    `gorm:"column:author_id;index" json:"author"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"date"`
	ModifiedAt time.Time `gorm:"column:modified_at" json:"modified"`
}

// TableName returns the table name for Post
func (Post) TableName() string { return "posts" }

// RevisionName returns the slug a named revision of the given parent carries.
func RevisionName(parentID uint64) string {
	return fmt.Sprintf("%d-revision-v1", parentID)
}

// AutosaveName returns the slug an autosave revision of the given parent carries.
func AutosaveName(parentID uint64) string {
	return fmt.Sprintf("%d-autosave-v1", parentID)
}

// IsRevision reports whether the row is a revision snapshot (autosaves included).
func (p *Post) IsRevision() bool {
	return p.PostType == TypeRevision
}

// IsAutosave reports whether the row is an autosave revision, decided by the
// naming convention.
func (p *Post) IsAutosave() bool {
	return p.IsRevision() && strings.Contains(p.Name, fmt.Sprintf("%d-autosave", p.ParentID))
}

// SaveContext carries per-request save flags through the save pipeline.
type SaveContext struct {
	// ForceCreate is set when a post update (not a fresh insert) of a
	// revision-supporting type is in flight.
	ForceCreate bool
	// Restoring is set while a revision restore drives the save.
	Restoring bool
}

// SavePostRequest represents an editor save.
type SavePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Excerpt *string `json:"excerpt"`
	Status  *string `json:"status"`
}

// CreatePostRequest represents creating a new post.
type CreatePostRequest struct {
	PostType string `json:"type"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Excerpt  string `json:"excerpt"`
	Status   string `json:"status"`
}
