// Package notifications holds the newest-first notification log and its reducer.
package notifications

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/confirm"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

// Action is a state transition of the log. The set of actions is closed.
type Action interface {
	action()
}

// Receive prepends one live notification.
type Receive struct {
	Notification models.Notification
}

// Seed appends a history snapshot, newest first, after the current items.
type Seed struct {
	Notifications []models.Notification
}

// MarkAllRead flags every item as read.
type MarkAllRead struct{}

// Reset clears the log.
type Reset struct{}

func (Receive) action()     {}
func (Seed) action()        {}
func (MarkAllRead) action() {}
func (Reset) action()       {}

// Remote is the REST surface for notifications.
type Remote interface {
	FetchNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context) error
}

// Confirmer runs a confirmation call in the background.
type Confirmer interface {
	Submit(name string, fn confirm.Func, fields ...zap.Field)
}

// Log is the process-wide notification log.
type Log struct {
	mu    sync.RWMutex
	items []models.Notification
	ids   map[string]struct{}

	remote    Remote
	confirmer Confirmer
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an empty log.
func New(remote Remote, confirmer Confirmer, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		ids:       make(map[string]struct{}),
		remote:    remote,
		confirmer: confirmer,
		logger:    logger,
		now:       time.Now,
	}
}

// Dispatch applies a as one transition.
func (l *Log) Dispatch(a Action) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch a := a.(type) {
	case Receive:
		n := a.Notification
		if n.ID == "" {
			if n.Timestamp.IsZero() {
				n.Timestamp = l.now()
			}
			n.ID = LiveID(n.Timestamp)
		}
		if _, dup := l.ids[n.ID]; dup {
			l.logger.Debug("duplicate notification dropped", zap.String("id", n.ID))
			return
		}
		l.ids[n.ID] = struct{}{}
		l.items = append([]models.Notification{n}, l.items...)
	case Seed:
		for _, n := range a.Notifications {
			if n.ID == "" {
				continue
			}
			if _, dup := l.ids[n.ID]; dup {
				continue
			}
			l.ids[n.ID] = struct{}{}
			l.items = append(l.items, n)
		}
	case MarkAllRead:
		for i := range l.items {
			l.items[i].Read = true
		}
	case Reset:
		l.items = nil
		l.ids = make(map[string]struct{})
	default:
		l.logger.Warn("unknown notification action", zap.String("action", fmt.Sprintf("%T", a)))
	}
}

// LiveID synthesizes the id of a pushed notification from its delivery time.
// Two deliveries in the same nanosecond share an id and the second is dropped.
func LiveID(at time.Time) string {
	return "live-" + strconv.FormatInt(at.UnixNano(), 10)
}

// Live builds an unread notification for a pushed payload delivered now.
func (l *Log) Live(p models.Payload) models.Notification {
	at := l.now()
	return models.Notification{
		ID:        LiveID(at),
		Type:      p.NotificationType(),
		Payload:   p,
		Timestamp: at,
	}
}

// Items returns a newest-first copy of the log.
func (l *Log) Items() []models.Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Notification{}, l.items...)
}

// UnreadCount returns the number of unread items.
func (l *Log) UnreadCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.CountBy(l.items, func(n models.Notification) bool { return !n.Read })
}

// Hydrate seeds the log from history. On failure the log is left as is.
func (l *Log) Hydrate(ctx context.Context) error {
	if l.remote == nil {
		return nil
	}
	items, err := l.remote.FetchNotifications(ctx)
	if err != nil {
		l.logger.Warn("notification hydration failed", zap.Error(err))
		return fmt.Errorf("fetch notifications: %w", err)
	}
	l.Dispatch(Seed{Notifications: items})
	return nil
}

// MarkAllReadRemote marks the log read and queues the server confirmation.
func (l *Log) MarkAllReadRemote() {
	l.Dispatch(MarkAllRead{})
	if l.remote == nil || l.confirmer == nil {
		return
	}
	l.confirmer.Submit("mark notifications read", l.remote.MarkNotificationsRead)
}

// Partition splits items into personal and global, keeping order.
func Partition(items []models.Notification) (personal, global []models.Notification) {
	for _, n := range items {
		if n.Type.Category() == models.CategoryPersonal {
			personal = append(personal, n)
		} else {
			global = append(global, n)
		}
	}
	return personal, global
}
