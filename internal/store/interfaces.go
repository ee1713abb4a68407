package store

import (
	"context"
	"errors"
	"time"

	"mapchat.app/server/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ConversationStore holds per-session transcripts. Transcripts are
// append-only; messages are never reordered or deleted.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, id int64) (*model.Conversation, error)
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, conversationID int64) ([]model.ChatMessage, error)
}

// RepoCache holds a session's repository summary between the reactive fetch
// on link and the tool-call render, so the chat turn never re-hits the
// provider API.
type RepoCache interface {
	Get(ctx context.Context, sessionID string, provider model.Provider) ([]model.Repository, bool, error)
	Set(ctx context.Context, sessionID string, provider model.Provider, repos []model.Repository, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string, provider model.Provider) error
}
