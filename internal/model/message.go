package model

import "time"

// Message roles. The transcript only ever holds user and assistant turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Citation is a map-place source reference attached to an assistant turn.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ChatMessage is one turn in a conversation transcript. Messages are
// immutable once appended; the transcript is append-only and ordered by ID.
type ChatMessage struct {
	CreatedAt      time.Time  `json:"created_at"`
	Role           string     `json:"role"`
	Text           string     `json:"text"`
	Citations      []Citation `json:"citations,omitempty"`
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
}

// Conversation groups the transcript belonging to one browser session.
type Conversation struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}
