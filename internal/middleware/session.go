package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/session"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/pkg/response"
)

// ContextUserID is the key for the signed-in user id (int64) in gin context.
const ContextUserID = "user_id"

// SessionReader reports the signed-in user.
type SessionReader interface {
	CurrentUserID(ctx context.Context) (int64, error)
}

// RequireSession rejects requests while signed out and sets ContextUserID otherwise.
func RequireSession(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := sessions.CurrentUserID(c.Request.Context())
		if err != nil {
			if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrNoUserID) {
				response.Unauthorized(c, "not signed in")
			} else {
				response.Internal(c, "session unavailable")
			}
			c.Abort()
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the id set by RequireSession.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}
