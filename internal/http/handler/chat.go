package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/dto"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/model"
	"mapchat.app/server/internal/service"
)

type ChatHandler struct {
	chat     service.ChatService
	sessions *session.Manager
}

func NewChatHandler(chat service.ChatService, sessions *session.Manager) *ChatHandler {
	return &ChatHandler{chat: chat, sessions: sessions}
}

// Submit runs one chat turn for the session's conversation, creating the
// conversation on first use. A turn already in flight is refused with 409.
func (h *ChatHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var location *model.Coordinate
	if req.Location != nil {
		loc := req.Location.ToModel()
		if err := loc.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		location = &loc
	}

	conversationID, err := h.ensureConversation(c)
	if err != nil {
		slog.ErrorContext(ctx, "failed to establish conversation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start conversation"})
		return
	}

	sessionID, err := h.sessions.EnsureID(c)
	if err != nil {
		slog.ErrorContext(ctx, "failed to establish session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start conversation"})
		return
	}

	result, err := h.chat.Submit(ctx, service.SubmitParams{
		Linked:         h.linkedAccount(c),
		Location:       location,
		Text:           req.Message,
		SessionID:      sessionID,
		ConversationID: conversationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
		case errors.Is(err, service.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "a reply is already in progress"})
		default:
			slog.ErrorContext(ctx, "chat turn failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ChatResponse{
		UserMessage:      dto.FromChatMessage(result.UserTurn),
		AssistantMessage: dto.FromChatMessage(result.AssistantTurn),
	})
}

// History returns the session's transcript, oldest first. A session with
// no conversation yet gets an empty list rather than an error.
func (h *ChatHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	conversationID, ok := h.sessions.ConversationID(c)
	if !ok {
		c.JSON(http.StatusOK, dto.ChatHistoryResponse{Messages: []dto.ChatMessage{}})
		return
	}

	messages, err := h.chat.History(ctx, conversationID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load history", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, dto.ChatHistoryResponse{Messages: dto.FromChatMessages(messages)})
}

func (h *ChatHandler) ensureConversation(c *gin.Context) (int64, error) {
	if id, ok := h.sessions.ConversationID(c); ok {
		return id, nil
	}

	conv, err := h.chat.NewConversation(c.Request.Context())
	if err != nil {
		return 0, err
	}
	if err := h.sessions.SetConversationID(c, conv.ID); err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// linkedAccount prefers GitHub when both hosts are linked; repository
// listing is a single-host capability.
func (h *ChatHandler) linkedAccount(c *gin.Context) *service.LinkedAccount {
	for _, provider := range []model.Provider{model.ProviderGitHub, model.ProviderGitLab} {
		if token, ok := h.sessions.Token(c, provider); ok {
			return &service.LinkedAccount{Provider: provider, Token: token}
		}
	}
	return nil
}
