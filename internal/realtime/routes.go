package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/notifications"
)

// ErrEmptyPayload is returned for events without a body.
var ErrEmptyPayload = errors.New("empty payload")

const previewRunes = 120

// FeedPatcher applies pushed post updates.
type FeedPatcher interface {
	Patch(post models.Post) bool
}

// PollUpdater applies pushed poll state.
type PollUpdater interface {
	ApplyRemote(ctx context.Context, raw models.PollRecord) models.Poll
}

// NotificationSink receives pushed notifications.
type NotificationSink interface {
	Dispatch(a notifications.Action)
	Live(p models.Payload) models.Notification
}

// Targets are the stores push events are routed into.
type Targets struct {
	Feed          FeedPatcher
	Polls         PollUpdater
	Notifications NotificationSink
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode unmarshals payload into out and checks its validate tags.
func decode(payload []byte, out any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// Routes builds the router for the push events the app consumes.
func Routes(t Targets, r *Router) *Router {
	r.Handle(models.EventFeedNewPost, func(_ context.Context, payload []byte) error {
		var post models.Post
		if err := decode(payload, &post); err != nil {
			return err
		}
		t.Notifications.Dispatch(notifications.Receive{Notification: t.Notifications.Live(models.NewPostPayload{
			PostID:   post.ID,
			AuthorID: post.AuthorID,
			Preview:  preview(post.Content),
		})})
		return nil
	})

	r.Handle(models.EventFeedUpdatePost, func(_ context.Context, payload []byte) error {
		var post models.Post
		if err := decode(payload, &post); err != nil {
			return err
		}
		t.Feed.Patch(post)
		return nil
	})

	r.Handle(models.EventPollUpdate, func(ctx context.Context, payload []byte) error {
		var poll models.PollRecord
		if err := decode(payload, &poll); err != nil {
			return err
		}
		t.Polls.ApplyRemote(ctx, poll)
		return nil
	})

	r.Handle(models.EventMatchUpdate, func(_ context.Context, payload []byte) error {
		var p models.MatchUpdatePayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		t.Notifications.Dispatch(notifications.Receive{Notification: t.Notifications.Live(p)})
		return nil
	})

	r.Handle(models.EventTimelineUpdate, func(_ context.Context, payload []byte) error {
		var p models.TimelineUpdatePayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		t.Notifications.Dispatch(notifications.Receive{Notification: t.Notifications.Live(p)})
		return nil
	})

	r.Handle(models.EventNotificationNew, func(_ context.Context, payload []byte) error {
		if len(payload) == 0 {
			return ErrEmptyPayload
		}
		var n models.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if n.Payload == nil {
			return ErrEmptyPayload
		}
		if err := validate.Struct(n.Payload); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		if n.Timestamp.IsZero() {
			n.Timestamp = time.Now()
		}
		t.Notifications.Dispatch(notifications.Receive{Notification: n})
		return nil
	})

	return r
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "…"
}
