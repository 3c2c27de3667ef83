package memory

import "time"

// Source types for memory entries.
const (
	SourceChat   = "chat"
	SourceManual = "manual"
)

// Entry is a durable insight, either saved explicitly by the user or
// auto-captured from a completed analysis.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	Tags       []string  `json:"tags"`
	SourceType string    `json:"sourceType,omitempty"`
	SourceID   string    `json:"sourceId,omitempty"`
	Importance int       `json:"importance"`
	CreatedAt  time.Time `json:"createdAt"`
}
