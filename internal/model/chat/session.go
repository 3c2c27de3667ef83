package chat

import "time"

// Session captures one ongoing dialogue between a user and an assistant.
// The assistant type is fixed at creation and never changes afterwards.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	AssistantType string    `json:"assistantType"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SessionWithMessages bundles a session with its full ordered history.
type SessionWithMessages struct {
	Session
	Messages []Message `json:"messages"`
}
