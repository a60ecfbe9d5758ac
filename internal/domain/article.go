package domain

// ArticleStatus are the derived booleans the revisions view gates on.
type ArticleStatus struct {
	Readonly   bool `json:"readonly"`
	CanRestore bool `json:"canRestore"`
	IsLocked   bool `json:"isLocked"`
}

// RevisionItem is the REST representation of a post or revision row plus its
// annotations.
type RevisionItem struct {
	ID         uint64                 `json:"id"`
	Parent     uint64                 `json:"parent,omitempty"`
	Date       string                 `json:"date"`
	Modified   string                 `json:"modified"`
	Slug       string                 `json:"slug"`
	Status     string                 `json:"status"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Excerpt    string                 `json:"excerpt"`
	Author     uint64                 `json:"author"`
	NPStatus   string                 `json:"newspress_status"`
	NPCount    int                    `json:"newspress_count"`
	Meta       map[string]interface{} `json:"meta"`
	SaveData   *SaveData              `json:"saveData"`
	AuthorData *AuthorData            `json:"authorData"`
}

// Article is the composite view of a post and a page of its revisions.
type Article struct {
	PostID    uint64          `json:"postId"`
	Exists    bool            `json:"-"`
	Post      *RevisionItem   `json:"post"`
	EditLink  string          `json:"editLink,omitempty"`
	RestURL   string          `json:"restUrl,omitempty"`
	Revisions []*RevisionItem `json:"revisions"`
	Autosaves []uint64        `json:"autosaves"`
	MaxPages  int             `json:"maxPages"`
	Status    ArticleStatus   `json:"status"`
}
