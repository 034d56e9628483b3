package domain

// KnowledgeEntry is a curated problem and its known solution.
type KnowledgeEntry struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Solution    string `json:"solution"`
}
