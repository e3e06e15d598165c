package notifications

import (
	"fmt"
	"strconv"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

// Names looks up cached display names. Missing users render as a placeholder.
type Names interface {
	Peek(id int64) (models.User, bool)
}

// Label renders the display text of n.
func Label(n models.Notification, names Names) string {
	name := func(id int64) string {
		if names != nil {
			if u, ok := names.Peek(id); ok && u.Name != "" {
				return u.Name
			}
		}
		return "Usuário #" + strconv.FormatInt(id, 10)
	}

	switch p := n.Payload.(type) {
	case models.ReactionPayload:
		return name(p.UserID) + " reagiu ao seu post"
	case models.CommentPayload:
		if p.Text == "" {
			return name(p.UserID) + " comentou no seu post"
		}
		return fmt.Sprintf("%s comentou: %s", name(p.UserID), p.Text)
	case models.MentionPayload:
		return name(p.UserID) + " mencionou você"
	case models.FollowPayload:
		return name(p.UserID) + " começou a seguir você"
	case models.NewPostPayload:
		if p.AuthorID == 0 {
			return "Novo post no feed"
		}
		return "Novo post de " + name(p.AuthorID)
	case models.NewPollPayload:
		return "Nova enquete: " + p.Question
	case models.MatchUpdatePayload:
		if p.Status == "" {
			return fmt.Sprintf("Placar atualizado: %d x %d", p.HomeScore, p.AwayScore)
		}
		return fmt.Sprintf("Placar atualizado: %d x %d (%s)", p.HomeScore, p.AwayScore, p.Status)
	case models.TimelineUpdatePayload:
		return fmt.Sprintf("%d' %s", p.Minute, p.Description)
	case models.SystemPayload:
		if p.Title == "" {
			return p.Message
		}
		return p.Title + ": " + p.Message
	case nil:
		return ""
	default:
		return string(n.Type)
	}
}
