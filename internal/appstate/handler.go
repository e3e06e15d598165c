package appstate

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/session"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/pkg/response"
)

// SyncRequest is the optional body for POST /session/sync. A token signs in first.
type SyncRequest struct {
	Token string `json:"token"`
}

// Handler serves session and state endpoints.
type Handler struct {
	state *State
}

// NewHandler creates a state handler.
func NewHandler(state *State) *Handler {
	return &Handler{state: state}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok", "connection": h.state.Bridge.State()})
}

// Snapshot handles GET /state.
func (h *Handler) Snapshot(c *gin.Context) {
	response.OK(c, h.state.Snapshot(c.Request.Context()))
}

// Sync handles POST /session/sync: sign in with a token when given, then refetch and re-key the bridge.
func (h *Handler) Sync(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	ctx := c.Request.Context()

	var err error
	if req.Token != "" {
		err = h.state.SignIn(ctx, req.Token)
	} else {
		err = h.state.Resync(ctx)
	}
	switch {
	case errors.Is(err, session.ErrNoUserID):
		response.BadRequest(c, "token has no user id")
	case err != nil && req.Token != "":
		response.BadRequest(c, "invalid token")
	case err != nil:
		response.ServiceUnavailable(c, "sync failed")
	default:
		response.OK(c, h.state.Snapshot(ctx))
	}
}

// SignOut handles POST /session/signout.
func (h *Handler) SignOut(c *gin.Context) {
	if err := h.state.SignOut(c.Request.Context()); err != nil {
		response.Internal(c, "failed to sign out")
		return
	}
	response.NoContent(c)
}
