package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mapchat.app/server/common/id"
	"mapchat.app/server/common/llm"
	"mapchat.app/server/common/logger"
	"mapchat.app/server/internal/model"
	"mapchat.app/server/internal/service/sourcehost"
	"mapchat.app/server/internal/store"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a request is already in flight for this conversation")
)

// Fixed assistant texts. The error turn and the prompt-to-link turn are
// product copy, not formatting targets, so they live here as constants.
const (
	ErrorTurnText = "I encountered an error processing your request. Please try again."
	LinkPromptText = "You haven't connected a source-control account yet. " +
		"Use the connect button above the map to link one, then ask me again."
)

const toolListRepositories = "list_github_repositories"

const systemPrompt = "You are a helpful map assistant. Answer questions about " +
	"places, businesses and directions, grounding your answers in real map data " +
	"whenever you can. Keep answers short and conversational."

// listRepositoriesArgs is intentionally empty: the capability takes no
// parameters, but providers still want a schema for the declaration.
type listRepositoriesArgs struct{}

// LinkedAccount carries the session's linked identity into a chat turn.
// A nil value means no account is linked.
type LinkedAccount struct {
	Provider model.Provider
	Token    string
}

type SubmitParams struct {
	Linked         *LinkedAccount
	Location       *model.Coordinate
	Text           string
	SessionID      string
	ConversationID int64
}

// SubmitResult is one completed chat turn: the appended user message and
// the assistant message that answered it.
type SubmitResult struct {
	UserTurn      model.ChatMessage
	AssistantTurn model.ChatMessage
}

// ChatService owns the transcript and turns user input into assistant turns.
type ChatService interface {
	NewConversation(ctx context.Context) (*model.Conversation, error)
	History(ctx context.Context, conversationID int64) ([]model.ChatMessage, error)
	Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error)
}

type chatService struct {
	conversations store.ConversationStore
	links         sourcehost.LinkService
	client        llm.Client
	maxTokens     int

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewChatService(
	conversations store.ConversationStore,
	links sourcehost.LinkService,
	client llm.Client,
	maxTokens int,
) ChatService {
	return &chatService{
		conversations: conversations,
		links:         links,
		client:        client,
		maxTokens:     maxTokens,
		inFlight:      make(map[int64]struct{}),
	}
}

func (s *chatService) NewConversation(ctx context.Context) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id.New()}
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

func (s *chatService) History(ctx context.Context, conversationID int64) ([]model.ChatMessage, error) {
	return s.conversations.ListMessages(ctx, conversationID)
}

// Submit appends the user turn, issues exactly one model call, and appends
// the resulting assistant turn. Empty input is rejected before anything is
// appended or sent. Any transport or model failure becomes a fixed assistant
// error turn rather than a surfaced error; the in-flight guard is always
// released.
func (s *chatService) Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if !s.acquire(params.ConversationID) {
		return nil, ErrBusy
	}
	defer s.release(params.ConversationID)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: logger.Ptr(params.ConversationID),
		Component:      "mapchat.service.chat",
	})

	if _, err := s.conversations.GetConversation(ctx, params.ConversationID); err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	history, err := s.conversations.ListMessages(ctx, params.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}

	userTurn := model.ChatMessage{
		ID:             id.New(),
		ConversationID: params.ConversationID,
		Role:           model.RoleUser,
		Text:           text,
	}
	if err := s.conversations.AppendMessage(ctx, &userTurn); err != nil {
		return nil, fmt.Errorf("appending user turn: %w", err)
	}

	assistantTurn, err := s.answer(ctx, params, history, text)
	if err != nil {
		slog.ErrorContext(ctx, "chat turn failed", "error", err, "prompt", logger.Truncate(text, 120))
		assistantTurn = model.ChatMessage{
			Role: model.RoleAssistant,
			Text: ErrorTurnText,
		}
	}

	assistantTurn.ID = id.New()
	assistantTurn.ConversationID = params.ConversationID
	if err := s.conversations.AppendMessage(ctx, &assistantTurn); err != nil {
		return nil, fmt.Errorf("appending assistant turn: %w", err)
	}

	return &SubmitResult{UserTurn: userTurn, AssistantTurn: assistantTurn}, nil
}

// answer issues the single model call for this turn and resolves a requested
// tool invocation locally.
func (s *chatService) answer(ctx context.Context, params SubmitParams, history []model.ChatMessage, text string) (model.ChatMessage, error) {
	req := llm.Request{
		Messages:  buildMessages(history, text),
		MaxTokens: s.maxTokens,
		Tools: []llm.Tool{{
			Name:        toolListRepositories,
			Description: "List the user's most recently updated source-control repositories.",
			Parameters:  llm.GenerateSchemaFrom(listRepositoriesArgs{}),
		}},
	}
	if params.Location != nil {
		req.Location = &llm.LatLng{
			Latitude:  params.Location.Latitude,
			Longitude: params.Location.Longitude,
		}
	}

	resp, err := s.client.Chat(ctx, req)
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("chat completion: %w", err)
	}

	if call, ok := findToolCall(resp, toolListRepositories); ok {
		return s.listRepositoriesTurn(ctx, params, call)
	}

	return model.ChatMessage{
		Role:      model.RoleAssistant,
		Text:      resp.Content,
		Citations: toCitations(resp.Citations),
	}, nil
}

// listRepositoriesTurn resolves the repository capability without a second
// model round-trip; the list is formatted locally.
func (s *chatService) listRepositoriesTurn(ctx context.Context, params SubmitParams, _ llm.ToolCall) (model.ChatMessage, error) {
	slog.DebugContext(ctx, "resolving repository tool call locally, bypassing the model for this turn")

	if params.Linked == nil {
		return model.ChatMessage{
			Role: model.RoleAssistant,
			Text: LinkPromptText,
		}, nil
	}

	repos, err := s.links.Repositories(ctx, params.SessionID, params.Linked.Provider, params.Linked.Token)
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("listing repositories: %w", err)
	}

	return model.ChatMessage{
		Role: model.RoleAssistant,
		Text: FormatRepositoryList(repos),
	}, nil
}

// FormatRepositoryList renders a repository summary as a markdown bullet
// list, one line per repository, the name linking to the repository URI.
func FormatRepositoryList(repos []model.Repository) string {
	if len(repos) == 0 {
		return "You don't have any repositories yet."
	}

	lines := make([]string, len(repos))
	for i, r := range repos {
		line := fmt.Sprintf("- [%s](%s)", r.Name, r.URI)
		if r.Description != "" {
			line += ": " + r.Description
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func buildMessages(history []model.ChatMessage, text string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Text})
	}
	msgs = append(msgs, llm.Message{Role: model.RoleUser, Content: text})
	return msgs
}

func findToolCall(resp *llm.Response, name string) (llm.ToolCall, bool) {
	for _, call := range resp.ToolCalls {
		if call.Name == name {
			return call, true
		}
	}
	return llm.ToolCall{}, false
}

func toCitations(citations []llm.Citation) []model.Citation {
	if len(citations) == 0 {
		return nil
	}
	out := make([]model.Citation, len(citations))
	for i, c := range citations {
		out[i] = model.Citation{URI: c.URI, Title: c.Title}
	}
	return out
}

func (s *chatService) acquire(conversationID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[conversationID]; busy {
		return false
	}
	s.inFlight[conversationID] = struct{}{}
	return true
}

func (s *chatService) release(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, conversationID)
}
