package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/dto"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/model"
	"mapchat.app/server/internal/service/sourcehost"
)

// callbackPage closes the OAuth popup after notifying the opener. The
// target origin is pinned to the app origin so the token-bearing window
// never posts to an unexpected parent.
var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html>
<head><title>Account linked</title></head>
<body>
<p>Account linked. You can close this window.</p>
<script>
  if (window.opener) {
    window.opener.postMessage({type: "OAUTH_AUTH_SUCCESS", provider: {{.Provider}}}, {{.Origin}});
  }
  window.close();
</script>
</body>
</html>
`))

type AuthHandler struct {
	links     sourcehost.LinkService
	sessions  *session.Manager
	appOrigin string
}

func NewAuthHandler(links sourcehost.LinkService, sessions *session.Manager, appOrigin string) *AuthHandler {
	return &AuthHandler{links: links, sessions: sessions, appOrigin: appOrigin}
}

// AuthorizationURL mints a fresh anti-forgery state, stores it in the
// session, and returns the provider's consent URL for the popup to open.
func (h *AuthHandler) AuthorizationURL(c *gin.Context) {
	ctx := c.Request.Context()

	provider, ok := providerParam(c)
	if !ok {
		return
	}

	state, err := generateState()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate link"})
		return
	}

	authURL, err := h.links.AuthorizationURL(provider, state)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build authorization URL", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate link"})
		return
	}

	if err := h.sessions.SetOAuthState(c, provider, state); err != nil {
		slog.ErrorContext(ctx, "failed to persist oauth state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate link"})
		return
	}

	c.JSON(http.StatusOK, dto.AuthURLResponse{URL: authURL})
}

// Callback handles the provider redirect. The code is exchanged only when
// present and only when the state echoes what this session issued.
func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	provider, ok := providerParam(c)
	if !ok {
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		slog.WarnContext(ctx, "provider returned oauth error",
			"provider", provider, "error", errParam, "description", c.Query("error_description"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization was denied"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	storedState, hasState := h.sessions.OAuthState(c, provider)
	if !hasState || c.Query("state") != storedState {
		slog.WarnContext(ctx, "oauth state mismatch", "provider", provider)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}
	if err := h.sessions.ClearOAuthState(c, provider); err != nil {
		slog.WarnContext(ctx, "failed to clear oauth state", "error", err)
	}

	token, err := h.links.Exchange(ctx, provider, code)
	if err != nil {
		slog.ErrorContext(ctx, "code exchange failed", "provider", provider, "error", err)
		if errors.Is(err, sourcehost.ErrInvalidCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to link account"})
		return
	}

	if err := h.sessions.SetToken(c, provider, token); err != nil {
		slog.ErrorContext(ctx, "failed to store token", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to link account"})
		return
	}

	slog.InfoContext(ctx, "account linked", "provider", provider)

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(c.Writer, gin.H{
		"Provider": string(provider),
		"Origin":   h.appOrigin,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to render callback page", "error", err)
	}
}

// Unlink drops the stored token and evicts the session's cached
// repositories for the provider.
func (h *AuthHandler) Unlink(c *gin.Context) {
	ctx := c.Request.Context()

	provider, ok := providerParam(c)
	if !ok {
		return
	}

	if err := h.sessions.ClearToken(c, provider); err != nil {
		slog.ErrorContext(ctx, "failed to clear token", "provider", provider, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unlink account"})
		return
	}

	sessionID, err := h.sessions.EnsureID(c)
	if err == nil {
		if err := h.links.Invalidate(ctx, sessionID, provider); err != nil {
			slog.WarnContext(ctx, "failed to invalidate repository cache", "provider", provider, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "unlinked"})
}

func providerParam(c *gin.Context) (model.Provider, bool) {
	provider := model.Provider(c.Param("provider"))
	if !provider.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown provider %q", c.Param("provider"))})
		return "", false
	}
	return provider, true
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
