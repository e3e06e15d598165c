// Package httpapi exposes the sync state to UI collaborators over a local HTTP API.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/appstate"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/feed"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/middleware"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/notifications"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/polls"
)

// NewRouter builds the gin engine for st.
func NewRouter(st *appstate.State, corsOrigins string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	stateHandler := appstate.NewHandler(st)
	feedHandler := feed.NewHandler(st.Feed)
	pollHandler := polls.NewHandler(st.Polls, st.Users)
	notificationHandler := notifications.NewHandler(st.Notifications, st.Users)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(corsOrigins))
	router.Use(middleware.Logger(logger, "/health"))

	router.GET("/health", stateHandler.Health)
	router.GET("/state", stateHandler.Snapshot)
	router.POST("/session/sync", stateHandler.Sync)
	router.POST("/session/signout", stateHandler.SignOut)

	// Reads work signed out and return whatever the stores hold.
	router.GET("/feed", feedHandler.List)
	router.GET("/feed/:id", feedHandler.Get)
	router.GET("/polls", pollHandler.List)
	router.GET("/polls/:id", pollHandler.Get)
	router.GET("/notifications", notificationHandler.List)

	signedIn := router.Group("")
	signedIn.Use(middleware.RequireSession(st.Session))
	{
		signedIn.POST("/feed/:id/reactions", feedHandler.React)
		signedIn.POST("/feed/:id/comments", feedHandler.Comment)
		signedIn.POST("/polls/:id/vote", pollHandler.Vote)
		signedIn.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	}
	return router
}
