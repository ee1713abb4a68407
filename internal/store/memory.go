package store

import (
	"context"
	"sync"
	"time"

	"mapchat.app/server/internal/model"
)

// memoryConversationStore is the default transcript store when no
// DATABASE_URL is configured. Transcripts live for the process lifetime.
type memoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[int64]model.Conversation
	messages      map[int64][]model.ChatMessage
}

func NewMemoryConversationStore() ConversationStore {
	return &memoryConversationStore{
		conversations: make(map[int64]model.Conversation),
		messages:      make(map[int64][]model.ChatMessage),
	}
}

func (s *memoryConversationStore) CreateConversation(_ context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	s.conversations[conv.ID] = *conv
	return nil
}

func (s *memoryConversationStore) GetConversation(_ context.Context, id int64) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &conv, nil
}

func (s *memoryConversationStore) AppendMessage(_ context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return ErrNotFound
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	return nil
}

func (s *memoryConversationStore) ListMessages(_ context.Context, conversationID int64) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

type cachedRepos struct {
	expiresAt time.Time
	repos     []model.Repository
}

// memoryRepoCache is the default repository cache when no REDIS_URL is
// configured.
type memoryRepoCache struct {
	mu      sync.RWMutex
	entries map[string]cachedRepos
}

func NewMemoryRepoCache() RepoCache {
	return &memoryRepoCache{entries: make(map[string]cachedRepos)}
}

func (c *memoryRepoCache) Get(_ context.Context, sessionID string, provider model.Provider) ([]model.Repository, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[repoCacheKey(sessionID, provider)]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	repos := make([]model.Repository, len(entry.repos))
	copy(repos, entry.repos)
	return repos, true, nil
}

func (c *memoryRepoCache) Set(_ context.Context, sessionID string, provider model.Provider, repos []model.Repository, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[repoCacheKey(sessionID, provider)] = cachedRepos{
		expiresAt: time.Now().Add(ttl),
		repos:     repos,
	}
	return nil
}

func (c *memoryRepoCache) Delete(_ context.Context, sessionID string, provider model.Provider) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, repoCacheKey(sessionID, provider))
	return nil
}

func repoCacheKey(sessionID string, provider model.Provider) string {
	return "repos:" + string(provider) + ":" + sessionID
}
