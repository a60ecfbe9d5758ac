package plugin

// Lifecycle event names dispatched by the revisions engine.
const (
	// FilterRevisionStatus lets a listener override the computed annotation
	// status. Input/output key: "status".
	FilterRevisionStatus = "revisions.status"

	// FilterMetaCompare supplies the meta keys compared by the
	// should-create-revision decision. Key: "keys" ([]string).
	FilterMetaCompare = "revisions.meta_compare"

	// FilterMetaExclusions supplies meta keys stripped before meta
	// replacement processing. Key: "keys" ([]string).
	FilterMetaExclusions = "revisions.meta_exclusions"

	// FilterMetaToIgnore supplies bookkeeping keys never deleted or
	// overwritten during restore and autosave writes. Key: "keys" ([]string).
	FilterMetaToIgnore = "revisions.meta_to_ignore"

	// FilterPerPage overrides the revisions page size. Key: "per_page" (int).
	FilterPerPage = "revisions.per_page"

	// FilterStrings overrides the whole UI string table. Key: "strings".
	FilterStrings = "newspress_revision_strings"

	// FilterPostLink overrides the admin link opening the revisions view
	// for a post. Keys: "link", "post_id".
	FilterPostLink = "revisions.post_link"

	// ActionPostStatusChange fires after a post's annotation status is
	// stamped. Keys: "post_id", "new_status", "old_status".
	ActionPostStatusChange = "revisions.post_status_change"

	// ActionRESTRevisionItem fires for every revision REST item produced.
	// Key: "item".
	ActionRESTRevisionItem = "revisions.rest_revision_item"
)
