package notifications

import (
	"github.com/gin-gonic/gin"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/pkg/response"
)

// View is a notification with its rendered label and category.
type View struct {
	models.Notification
	Label    string          `json:"label"`
	Category models.Category `json:"category"`
}

// ListResponse is the body of GET /notifications.
type ListResponse struct {
	Items  []View `json:"items"`
	Unread int    `json:"unread"`
}

// Handler serves the notification log to UI collaborators.
type Handler struct {
	log   *Log
	names Names
}

// NewHandler creates a notifications handler.
func NewHandler(log *Log, names Names) *Handler {
	return &Handler{log: log, names: names}
}

// List handles GET /notifications. ?category=personal|global filters the list.
func (h *Handler) List(c *gin.Context) {
	items := h.log.Items()
	switch models.Category(c.Query("category")) {
	case models.CategoryPersonal:
		items, _ = Partition(items)
	case models.CategoryGlobal:
		_, items = Partition(items)
	case "":
	default:
		response.BadRequest(c, "category must be personal or global")
		return
	}

	views := make([]View, len(items))
	for i, n := range items {
		views[i] = View{Notification: n, Label: Label(n, h.names), Category: n.Type.Category()}
	}
	response.OK(c, ListResponse{Items: views, Unread: h.log.UnreadCount()})
}

// MarkAllRead handles POST /notifications/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	h.log.MarkAllReadRemote()
	response.Accepted(c, gin.H{"unread": h.log.UnreadCount()})
}
