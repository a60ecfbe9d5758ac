package domain

// Annotation meta keys. This is a closed set: clients may write arbitrary
// meta through the autosave endpoint, but never these.
const (
	MetaKeyStatus       = "newspress_status"
	MetaKeyCount        = "newspress_count"
	MetaKeyLastStatus   = "revision_last_post_status"
	MetaKeySavedBy      = "newspress_saved_by"
	MetaKeyTransition   = "newspress_status_transitioned"
	MetaKeyRevertedFrom = "newspress_reverted_from"
	MetaKeyAutosaveIDs  = "revision_autosave_ids"
	MetaKeyEditLink     = "newspress_edit_link"
)

// Annotation status values. AnnotationUnknown is a read-time fallback for
// revisions that predate stamping, never written.
const (
	AnnotationDraft    = "draft"
	AnnotationPublish  = "publish"
	AnnotationUpdate   = "update"
	AnnotationReverted = "reverted"
	AnnotationFuture   = "future"
	AnnotationAutosave = "autosave"
	AnnotationUnknown  = "unknown"
)

// RevertedFromAutosave is the stored sentinel meaning "restored from an
// autosave" rather than from a named revision.
const RevertedFromAutosave = "0"

// BookkeepingKeys are the annotation keys protected from client writes and
// preserved across restore meta replacement.
func BookkeepingKeys() []string {
	return []string{
		MetaKeyStatus,
		MetaKeyCount,
		MetaKeyLastStatus,
		MetaKeyRevertedFrom,
		MetaKeyTransition,
		MetaKeySavedBy,
	}
}

// PostMeta is a row in the generic key/value metadata table shared by posts
// and revisions. A post carries at most one row per key; the unique
// (post_id, meta_key) pair is what makes the repository's upsert work.
type PostMeta struct {
	ID     uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PostID uint64 `gorm:"column:post_id;uniqueIndex:idx_post_key" json:"post_id"`
	Key    string `gorm:"column:meta_key;type:varchar(255);uniqueIndex:idx_post_key" json:"key"`
	Value  string `gorm:"column:meta_value;type:longtext" json:"value"`
}

// TableName returns the table name for PostMeta
func (PostMeta) TableName() string { return "post_meta" }

// AuthorData identifies who performed a save.
type AuthorData struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// RevertedFromData expands the restore back-reference for REST consumers.
type RevertedFromData struct {
	ID               uint64 `json:"id"`
	Status           string `json:"newspress_status"`
	Count            int    `json:"newspress_count"`
	SaveTransitioned string `json:"save_transitioned"`
}

// SaveData is the provenance block attached to post and revision REST items.
// RevertedFrom is either the string "autosave" or a *RevertedFromData.
type SaveData struct {
	SavedByID        uint64      `json:"saved_by_id"`
	SaveTransitioned bool        `json:"save_transitioned"`
	LastPostStatus   string      `json:"last_post_status"`
	RevertedFrom     interface{} `json:"reverted_from,omitempty"`
}
