package feed

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/middleware"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/pkg/response"
)

// ReactRequest is the body for POST /feed/:id/reactions.
type ReactRequest struct {
	Reaction models.ReactionKind `json:"reaction" binding:"required,oneof=liked beast funny angry sad"`
}

// CommentRequest is the body for POST /feed/:id/comments.
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// Handler serves the feed to UI collaborators.
type Handler struct {
	store *Store
}

// NewHandler creates a feed handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// List handles GET /feed.
func (h *Handler) List(c *gin.Context) {
	response.OK(c, h.store.Posts())
}

// Get handles GET /feed/:id.
func (h *Handler) Get(c *gin.Context) {
	p, ok := h.store.Post(c.Param("id"))
	if !ok {
		response.NotFound(c, "post not found")
		return
	}
	response.OK(c, p)
}

// React handles POST /feed/:id/reactions. The reaction applies at once; confirmation runs in the background.
func (h *Handler) React(c *gin.Context) {
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: reaction must be one of liked, beast, funny, angry, sad")
		return
	}
	postID := c.Param("id")
	if err := h.store.React(postID, req.Reaction, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	p, _ := h.store.Post(postID)
	response.Accepted(c, p)
}

// Comment handles POST /feed/:id/comments.
func (h *Handler) Comment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	postID := c.Param("id")
	if err := h.store.Comment(postID, req.Text, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	p, _ := h.store.Post(postID)
	response.Accepted(c, p)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		response.NotFound(c, "post not found")
	case errors.Is(err, ErrInvalidReaction), errors.Is(err, ErrEmptyComment):
		response.BadRequest(c, err.Error())
	default:
		response.Internal(c, "failed to update post")
	}
}
