package dto

import (
	"strconv"
	"time"

	"mapchat.app/server/internal/model"
)

type ChatRequest struct {
	Message  string      `json:"message"`
	Location *Coordinate `json:"location,omitempty"`
}

type ChatMessage struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type ChatResponse struct {
	UserMessage      ChatMessage `json:"user_message"`
	AssistantMessage ChatMessage `json:"assistant_message"`
}

type ChatHistoryResponse struct {
	Messages []ChatMessage `json:"messages"`
}

func FromChatMessage(m model.ChatMessage) ChatMessage {
	out := ChatMessage{
		ID:        strconv.FormatInt(m.ID, 10),
		Role:      m.Role,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
	for _, cit := range m.Citations {
		out.Citations = append(out.Citations, Citation{URI: cit.URI, Title: cit.Title})
	}
	return out
}

func FromChatMessages(msgs []model.ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, FromChatMessage(m))
	}
	return out
}
