package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"mapchat.app/server/internal/http/handler"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/model"
)

var _ = Describe("ViewHandler", func() {
	var (
		router   *gin.Engine
		sessions *session.Manager
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		sessions = newSessionManager()
		h := handler.NewViewHandler(sessions)

		router = gin.New()
		router.GET("/api/view", h.Get)
		router.PUT("/api/view", h.Put)
	})

	putView := func(body any, cookie *http.Cookie) *httptest.ResponseRecorder {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest(http.MethodPut, "/api/view", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("returns the default view for a fresh session", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/view", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Zoom int `json:"zoom"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Zoom).To(Equal(model.MinZoom))
	})

	It("stores a view and returns it on the next read", func() {
		put := putView(map[string]any{
			"center": map[string]float64{"latitude": 51.5, "longitude": -0.12},
			"zoom":   14,
		}, nil)
		Expect(put.Code).To(Equal(http.StatusOK))

		req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
		req.AddCookie(lastSessionCookie(put))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Center struct {
				Latitude float64 `json:"latitude"`
			} `json:"center"`
			Zoom int `json:"zoom"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Center.Latitude).To(Equal(51.5))
		Expect(resp.Zoom).To(Equal(14))
	})

	It("clamps an out-of-range zoom instead of rejecting it", func() {
		w := putView(map[string]any{
			"center": map[string]float64{"latitude": 0, "longitude": 0},
			"zoom":   25,
		}, nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Zoom int `json:"zoom"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Zoom).To(Equal(model.MaxZoom))
	})

	It("rejects an out-of-range center", func() {
		w := putView(map[string]any{
			"center": map[string]float64{"latitude": 95.0, "longitude": 0},
			"zoom":   10,
		}, nil)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
