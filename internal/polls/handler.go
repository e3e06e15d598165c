package polls

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/middleware"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/pkg/response"
)

// VoteRequest is the body for POST /polls/:id/vote.
type VoteRequest struct {
	Option string `json:"option" binding:"required"`
}

// View is a poll with its derived display state.
type View struct {
	models.Poll
	Open   bool    `json:"open"`
	Winner *string `json:"winner,omitempty"`
}

// Handler serves polls to UI collaborators.
type Handler struct {
	engine *Engine
	users  UserLookup
}

// NewHandler creates a polls handler. users resolves the voter's profile for avatars.
func NewHandler(engine *Engine, users UserLookup) *Handler {
	return &Handler{engine: engine, users: users}
}

func (h *Handler) view(p models.Poll) View {
	v := View{Poll: p, Open: h.engine.IsOpen(p)}
	if w, ok := Winner(p); ok {
		v.Winner = &w.Value
	}
	return v
}

// List handles GET /polls.
func (h *Handler) List(c *gin.Context) {
	polls := h.engine.Polls()
	views := make([]View, len(polls))
	for i, p := range polls {
		views[i] = h.view(p)
	}
	response.OK(c, views)
}

// Get handles GET /polls/:id.
func (h *Handler) Get(c *gin.Context) {
	p, ok := h.engine.Poll(c.Param("id"))
	if !ok {
		response.NotFound(c, "poll not found")
		return
	}
	response.OK(c, h.view(p))
}

// Vote handles POST /polls/:id/vote.
func (h *Handler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: option is required")
		return
	}
	current, ok := h.engine.Poll(c.Param("id"))
	if !ok {
		response.NotFound(c, "poll not found")
		return
	}
	if !h.engine.IsOpen(current) {
		response.Conflict(c, "poll is closed")
		return
	}

	userID := middleware.UserID(c)
	user := models.User{ID: userID}
	if h.users != nil {
		if u, ok := h.users.Get(c.Request.Context(), userID); ok {
			user = u
			user.ID = userID
		}
	}

	p, err := h.engine.Vote(c.Param("id"), req.Option, user)
	switch {
	case errors.Is(err, ErrPollNotFound):
		response.NotFound(c, "poll not found")
	case errors.Is(err, ErrOptionNotFound):
		response.BadRequest(c, "unknown poll option")
	case err != nil:
		response.Internal(c, "failed to record vote")
	default:
		response.Accepted(c, h.view(p))
	}
}
