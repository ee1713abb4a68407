package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/dto"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/model"
)

// ViewHandler persists the map viewport in the session so a reload
// restores where the user left off.
type ViewHandler struct {
	sessions *session.Manager
}

func NewViewHandler(sessions *session.Manager) *ViewHandler {
	return &ViewHandler{sessions: sessions}
}

func (h *ViewHandler) Get(c *gin.Context) {
	view, ok := h.sessions.ViewState(c)
	if !ok {
		view = model.DefaultViewState()
	}
	c.JSON(http.StatusOK, dto.FromViewState(view))
}

// Put validates the center and clamps the zoom before storing; an
// out-of-range zoom is corrected, not rejected.
func (h *ViewHandler) Put(c *gin.Context) {
	var req dto.ViewStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	center := req.Center.ToModel()
	if err := center.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view := model.ViewState{Center: center, Zoom: model.ClampZoom(req.Zoom)}
	if err := h.sessions.SetViewState(c, view); err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to store view state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store view"})
		return
	}

	c.JSON(http.StatusOK, dto.FromViewState(view))
}
