package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"mapchat.app/server/internal/http/handler"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/model"
	"mapchat.app/server/internal/service/sourcehost"
)

var _ = Describe("AuthHandler", func() {
	var (
		router   *gin.Engine
		links    *mockLinkService
		sessions *session.Manager
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		sessions = newSessionManager()
		links = &mockLinkService{}
		h := handler.NewAuthHandler(links, sessions, "https://mapchat.example")
		hosts := handler.NewSourceHostHandler(links, sessions)

		router = gin.New()
		router.GET("/api/auth/:provider/url", h.AuthorizationURL)
		router.GET("/api/auth/:provider/callback", h.Callback)
		router.DELETE("/api/auth/:provider", h.Unlink)
		router.GET("/api/:provider/user", hosts.Profile)
	})

	Describe("AuthorizationURL", func() {
		It("returns a consent URL carrying a fresh state", func() {
			var gotState string
			links.authorizationURLFn = func(provider model.Provider, state string) (string, error) {
				Expect(provider).To(Equal(model.ProviderGitHub))
				gotState = state
				return "https://github.com/login/oauth/authorize?state=" + url.QueryEscape(state), nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/github/url", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotState).NotTo(BeEmpty())
			Expect(w.Body.String()).To(ContainSubstring("github.com/login/oauth/authorize"))
			Expect(lastSessionCookie(w)).NotTo(BeNil())
		})

		It("rejects an unknown provider", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/bitbucket/url", nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Callback", func() {
		It("refuses a callback without a code and never exchanges", func() {
			var exchanged bool
			links.exchangeFn = func(context.Context, model.Provider, string) (string, error) {
				exchanged = true
				return "", nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/github/callback?state=s", nil))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(exchanged).To(BeFalse())
		})

		It("refuses a state that does not match the session", func() {
			var exchanged bool
			links.exchangeFn = func(context.Context, model.Provider, string) (string, error) {
				exchanged = true
				return "", nil
			}
			cookie := seedSession(sessions, func(c *gin.Context) {
				Expect(sessions.SetOAuthState(c, model.ProviderGitHub, "expected")).To(Succeed())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback?code=abc&state=forged", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(exchanged).To(BeFalse())
		})

		It("reports a provider-denied authorization", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/github/callback?error=access_denied", nil))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("exchanges the code, stores the token, and notifies the opener", func() {
			links.exchangeFn = func(_ context.Context, provider model.Provider, code string) (string, error) {
				Expect(provider).To(Equal(model.ProviderGitHub))
				Expect(code).To(Equal("abc"))
				return "gho_token", nil
			}
			cookie := seedSession(sessions, func(c *gin.Context) {
				Expect(sessions.SetOAuthState(c, model.ProviderGitHub, "expected")).To(Succeed())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback?code=abc&state=expected", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
			Expect(w.Body.String()).To(ContainSubstring("OAUTH_AUTH_SUCCESS"))
			Expect(w.Body.String()).To(ContainSubstring("github"))
			Expect(w.Body.String()).To(ContainSubstring("https://mapchat.example"))

			// The stored token now authenticates proxied reads.
			var gotToken string
			links.profileFn = func(_ context.Context, _ model.Provider, token string) (*model.Profile, error) {
				gotToken = token
				return &model.Profile{Handle: "octocat"}, nil
			}
			next := httptest.NewRequest(http.MethodGet, "/api/github/user", nil)
			next.AddCookie(lastSessionCookie(w))
			nextW := httptest.NewRecorder()
			router.ServeHTTP(nextW, next)

			Expect(nextW.Code).To(Equal(http.StatusOK))
			Expect(gotToken).To(Equal("gho_token"))
		})

		It("maps an invalid code to 400", func() {
			links.exchangeFn = func(context.Context, model.Provider, string) (string, error) {
				return "", sourcehost.ErrInvalidCode
			}
			cookie := seedSession(sessions, func(c *gin.Context) {
				Expect(sessions.SetOAuthState(c, model.ProviderGitHub, "expected")).To(Succeed())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback?code=bad&state=expected", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps an exchange transport failure to 500", func() {
			links.exchangeFn = func(context.Context, model.Provider, string) (string, error) {
				return "", errors.New("connection refused")
			}
			cookie := seedSession(sessions, func(c *gin.Context) {
				Expect(sessions.SetOAuthState(c, model.ProviderGitHub, "expected")).To(Succeed())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback?code=abc&state=expected", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Unlink", func() {
		It("drops the token and evicts the cached repositories", func() {
			var invalidated model.Provider
			links.invalidateFn = func(_ context.Context, sessionID string, provider model.Provider) error {
				Expect(sessionID).NotTo(BeEmpty())
				invalidated = provider
				return nil
			}
			cookie := seedSession(sessions, func(c *gin.Context) {
				Expect(sessions.SetToken(c, model.ProviderGitHub, "gho_token")).To(Succeed())
			})

			req := httptest.NewRequest(http.MethodDelete, "/api/auth/github", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(invalidated).To(Equal(model.ProviderGitHub))

			// The session no longer authenticates proxied reads.
			next := httptest.NewRequest(http.MethodGet, "/api/github/user", nil)
			next.AddCookie(lastSessionCookie(w))
			nextW := httptest.NewRecorder()
			router.ServeHTTP(nextW, next)

			Expect(nextW.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
