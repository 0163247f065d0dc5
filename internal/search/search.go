package search

// Result is a single search hit over captured highlights.
type Result struct {
	ID        string   `json:"id"`
	Snippet   string   `json:"snippet"`
	OwnerKind string   `json:"ownerKind"`
	OwnerID   string   `json:"ownerId"`
	Section   string   `json:"section"`
	Year      int      `json:"year,omitempty"`
	ItemTitle string   `json:"itemTitle,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Query describes a search request. UserID is mandatory: highlights are never
// searchable across users.
type Query struct {
	Text    string
	UserID  string
	Section string // empty = all sections
	Year    int    // 0 = all years
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over highlights.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// HighlightRecord is the data indexed for one captured highlight.
type HighlightRecord struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	UserID    string   `json:"userId"`
	OwnerKind string   `json:"ownerKind"`
	OwnerID   string   `json:"ownerId"`
	Section   string   `json:"section"`
	Year      int      `json:"year"`
	ItemTitle string   `json:"itemTitle"`
}
