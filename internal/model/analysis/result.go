package analysis

import "time"

// Result is a persisted dialogue analysis. Created only by the analysis
// service and immutable once stored.
type Result struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId"`
	Strategy        string    `json:"strategy"`
	Insights        []string  `json:"insights"`
	Emotions        []string  `json:"emotions"`
	Patterns        []string  `json:"patterns"`
	Recommendations []string  `json:"recommendations"`
	Metadata        Metadata  `json:"metadata"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Metadata records provenance for a result.
type Metadata struct {
	Model      string    `json:"model,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	IsFallback bool      `json:"isFallback,omitempty"`
	ErrorType  string    `json:"errorType,omitempty"`
}
