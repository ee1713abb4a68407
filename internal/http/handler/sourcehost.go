package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/dto"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/service/sourcehost"
)

// SourceHostHandler proxies authenticated reads against a linked code
// host. The browser never sees the token; it lives in the session cookie
// and is re-attached here.
type SourceHostHandler struct {
	links    sourcehost.LinkService
	sessions *session.Manager
}

func NewSourceHostHandler(links sourcehost.LinkService, sessions *session.Manager) *SourceHostHandler {
	return &SourceHostHandler{links: links, sessions: sessions}
}

func (h *SourceHostHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()

	provider, ok := providerParam(c)
	if !ok {
		return
	}

	token, linked := h.sessions.Token(c, provider)
	if !linked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not linked"})
		return
	}

	profile, err := h.links.Profile(ctx, provider, token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch profile", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, dto.FromProfile(*profile))
}

func (h *SourceHostHandler) Repositories(c *gin.Context) {
	ctx := c.Request.Context()

	provider, ok := providerParam(c)
	if !ok {
		return
	}

	token, linked := h.sessions.Token(c, provider)
	if !linked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account not linked"})
		return
	}

	sessionID, err := h.sessions.EnsureID(c)
	if err != nil {
		slog.ErrorContext(ctx, "failed to establish session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch repositories"})
		return
	}

	repos, err := h.links.Repositories(ctx, sessionID, provider, token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch repositories", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch repositories"})
		return
	}

	c.JSON(http.StatusOK, dto.FromRepositories(repos))
}
