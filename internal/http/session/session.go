package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"mapchat.app/server/core/config"
	"mapchat.app/server/internal/model"
)

const (
	sessionName = "mapchat_session"

	keySessionID      = "session_id"
	keyConversationID = "conversation_id"
	keyViewState      = "view_state"
	tokenKeyPrefix    = "token:"
	stateKeyPrefix    = "oauth_state:"
)

// Manager wraps a signed, encrypted cookie store. Everything the app
// remembers about a browser lives in one cookie: the opaque session ID,
// the active conversation, per-provider OAuth tokens, and the map view.
type Manager struct {
	store *sessions.CookieStore
}

func NewManager(cfg config.SessionConfig, secure bool) (*Manager, error) {
	if cfg.AuthKey == "" {
		return nil, fmt.Errorf("session auth key is required")
	}

	keyPairs := [][]byte{[]byte(cfg.AuthKey)}
	if cfg.EncryptionKey != "" {
		keyPairs = append(keyPairs, []byte(cfg.EncryptionKey))
	}

	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.TTLHours * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{store: store}, nil
}

func (m *Manager) get(c *gin.Context) *sessions.Session {
	// Get returns a fresh session when the cookie is missing or fails
	// to decode, so a tampered cookie degrades to a new session.
	sess, _ := m.store.Get(c.Request, sessionName)
	return sess
}

func (m *Manager) save(c *gin.Context, sess *sessions.Session) error {
	return sess.Save(c.Request, c.Writer)
}

// EnsureID returns the session's opaque identifier, minting one on first
// use. The ID keys server-side caches; it carries no identity.
func (m *Manager) EnsureID(c *gin.Context) (string, error) {
	sess := m.get(c)
	if id, ok := sess.Values[keySessionID].(string); ok && id != "" {
		return id, nil
	}

	id, err := randomToken()
	if err != nil {
		return "", err
	}
	sess.Values[keySessionID] = id
	if err := m.save(c, sess); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Manager) ConversationID(c *gin.Context) (int64, bool) {
	sess := m.get(c)
	id, ok := sess.Values[keyConversationID].(int64)
	return id, ok && id != 0
}

func (m *Manager) SetConversationID(c *gin.Context, id int64) error {
	sess := m.get(c)
	sess.Values[keyConversationID] = id
	return m.save(c, sess)
}

func (m *Manager) Token(c *gin.Context, provider model.Provider) (string, bool) {
	sess := m.get(c)
	token, ok := sess.Values[tokenKeyPrefix+string(provider)].(string)
	return token, ok && token != ""
}

func (m *Manager) SetToken(c *gin.Context, provider model.Provider, token string) error {
	sess := m.get(c)
	sess.Values[tokenKeyPrefix+string(provider)] = token
	return m.save(c, sess)
}

func (m *Manager) ClearToken(c *gin.Context, provider model.Provider) error {
	sess := m.get(c)
	delete(sess.Values, tokenKeyPrefix+string(provider))
	return m.save(c, sess)
}

func (m *Manager) OAuthState(c *gin.Context, provider model.Provider) (string, bool) {
	sess := m.get(c)
	state, ok := sess.Values[stateKeyPrefix+string(provider)].(string)
	return state, ok && state != ""
}

func (m *Manager) SetOAuthState(c *gin.Context, provider model.Provider, state string) error {
	sess := m.get(c)
	sess.Values[stateKeyPrefix+string(provider)] = state
	return m.save(c, sess)
}

func (m *Manager) ClearOAuthState(c *gin.Context, provider model.Provider) error {
	sess := m.get(c)
	delete(sess.Values, stateKeyPrefix+string(provider))
	return m.save(c, sess)
}

// ViewState is stored as JSON to keep the cookie payload free of gob
// type registration.
func (m *Manager) ViewState(c *gin.Context) (model.ViewState, bool) {
	sess := m.get(c)
	raw, ok := sess.Values[keyViewState].(string)
	if !ok || raw == "" {
		return model.ViewState{}, false
	}

	var view model.ViewState
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return model.ViewState{}, false
	}
	return view, true
}

func (m *Manager) SetViewState(c *gin.Context, view model.ViewState) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}

	sess := m.get(c)
	sess.Values[keyViewState] = string(raw)
	return m.save(c, sess)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
