package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnknownNotificationType is returned when a payload is tagged with a type outside the fixed set.
var ErrUnknownNotificationType = errors.New("unknown notification type")

// NotificationType tags a notification and selects its payload shape.
type NotificationType string

const (
	NotificationReaction       NotificationType = "reaction"
	NotificationComment        NotificationType = "comment"
	NotificationMention        NotificationType = "mention"
	NotificationFollow         NotificationType = "follow"
	NotificationNewPost        NotificationType = "new_post"
	NotificationNewPoll        NotificationType = "new_poll"
	NotificationMatchUpdate    NotificationType = "match_update"
	NotificationTimelineUpdate NotificationType = "timeline_update"
	NotificationSystem         NotificationType = "system"
)

// Category partitions notification types for display.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryGlobal   Category = "global"
)

var personalTypes = map[NotificationType]struct{}{
	NotificationReaction: {},
	NotificationComment:  {},
	NotificationMention:  {},
	NotificationFollow:   {},
}

// Category returns personal for reaction/comment/mention/follow and global for everything else.
func (t NotificationType) Category() Category {
	if _, ok := personalTypes[t]; ok {
		return CategoryPersonal
	}
	return CategoryGlobal
}

// Payload is the type-specific body of a notification. Each NotificationType has exactly one implementation.
type Payload interface {
	NotificationType() NotificationType
}

type ReactionPayload struct {
	PostID   string       `json:"postId" validate:"required"`
	UserID   int64        `json:"userId" validate:"required"`
	Reaction ReactionKind `json:"reaction"`
}

type CommentPayload struct {
	PostID string `json:"postId" validate:"required"`
	UserID int64  `json:"userId" validate:"required"`
	Text   string `json:"text"`
}

type MentionPayload struct {
	PostID string `json:"postId" validate:"required"`
	UserID int64  `json:"userId" validate:"required"`
}

type FollowPayload struct {
	UserID int64 `json:"userId" validate:"required"`
}

type NewPostPayload struct {
	PostID   string `json:"postId" validate:"required"`
	AuthorID int64  `json:"userId"`
	Preview  string `json:"content"`
}

type NewPollPayload struct {
	PollID   string `json:"pollId" validate:"required"`
	Question string `json:"question"`
}

type MatchUpdatePayload struct {
	MatchID    string `json:"matchId" validate:"required"`
	HomeTeamID int64  `json:"homeTeamId"`
	AwayTeamID int64  `json:"awayTeamId"`
	HomeScore  int    `json:"homeScore"`
	AwayScore  int    `json:"awayScore"`
	Status     string `json:"status"`
}

type TimelineUpdatePayload struct {
	MatchID     string `json:"matchId" validate:"required"`
	Minute      int    `json:"minute"`
	Description string `json:"description" validate:"required"`
}

type SystemPayload struct {
	Title   string `json:"title"`
	Message string `json:"message" validate:"required"`
}

func (ReactionPayload) NotificationType() NotificationType       { return NotificationReaction }
func (CommentPayload) NotificationType() NotificationType        { return NotificationComment }
func (MentionPayload) NotificationType() NotificationType        { return NotificationMention }
func (FollowPayload) NotificationType() NotificationType         { return NotificationFollow }
func (NewPostPayload) NotificationType() NotificationType        { return NotificationNewPost }
func (NewPollPayload) NotificationType() NotificationType        { return NotificationNewPoll }
func (MatchUpdatePayload) NotificationType() NotificationType    { return NotificationMatchUpdate }
func (TimelineUpdatePayload) NotificationType() NotificationType { return NotificationTimelineUpdate }
func (SystemPayload) NotificationType() NotificationType         { return NotificationSystem }

// DecodePayload decodes raw into the payload shape selected by t.
func DecodePayload(t NotificationType, raw []byte) (Payload, error) {
	var p Payload
	switch t {
	case NotificationReaction:
		p = &ReactionPayload{}
	case NotificationComment:
		p = &CommentPayload{}
	case NotificationMention:
		p = &MentionPayload{}
	case NotificationFollow:
		p = &FollowPayload{}
	case NotificationNewPost:
		p = &NewPostPayload{}
	case NotificationNewPoll:
		p = &NewPollPayload{}
	case NotificationMatchUpdate:
		p = &MatchUpdatePayload{}
	case NotificationTimelineUpdate:
		p = &TimelineUpdatePayload{}
	case NotificationSystem:
		p = &SystemPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotificationType, t)
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return deref(p), nil
}

// deref turns the decode target back into a value so payloads compare by value.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *ReactionPayload:
		return *v
	case *CommentPayload:
		return *v
	case *MentionPayload:
		return *v
	case *FollowPayload:
		return *v
	case *NewPostPayload:
		return *v
	case *NewPollPayload:
		return *v
	case *MatchUpdatePayload:
		return *v
	case *TimelineUpdatePayload:
		return *v
	case *SystemPayload:
		return *v
	}
	return p
}

// Notification is one entry of the notification log.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Payload   Payload          `json:"payload"`
	Read      bool             `json:"read"`
	Timestamp time.Time        `json:"createdAt"`
}

// UnmarshalJSON decodes the payload according to the type tag. Numeric server ids are kept as their decimal text.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        jsoniter.RawMessage `json:"id"`
		Type      NotificationType    `json:"type"`
		Payload   jsoniter.RawMessage `json:"payload"`
		Read      bool                `json:"read"`
		Timestamp time.Time           `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	payload, err := DecodePayload(wire.Type, wire.Payload)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(string(wire.ID))
	if id == "null" {
		id = ""
	}
	if strings.HasPrefix(id, `"`) {
		if err := json.Unmarshal(wire.ID, &id); err != nil {
			return fmt.Errorf("decode notification id: %w", err)
		}
	}
	*n = Notification{
		ID:        id,
		Type:      wire.Type,
		Payload:   payload,
		Read:      wire.Read,
		Timestamp: wire.Timestamp,
	}
	return nil
}
