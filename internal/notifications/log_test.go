package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/confirm"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

func note(id string, t models.NotificationType, p models.Payload) models.Notification {
	return models.Notification{ID: id, Type: t, Payload: p}
}

func ids(items []models.Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestReceivePrependsAndDedupes(t *testing.T) {
	l := New(nil, nil, nil)

	l.Dispatch(Receive{Notification: note("1", models.NotificationFollow, models.FollowPayload{UserID: 2})})
	l.Dispatch(Receive{Notification: note("2", models.NotificationSystem, models.SystemPayload{Message: "oi"})})
	l.Dispatch(Receive{Notification: note("1", models.NotificationFollow, models.FollowPayload{UserID: 2})})

	assert.Equal(t, []string{"2", "1"}, ids(l.Items()))
	assert.Equal(t, 2, l.UnreadCount())
}

func TestReceiveSynthesizesLiveID(t *testing.T) {
	l := New(nil, nil, nil)
	at := time.Unix(1700000000, 42)
	l.now = func() time.Time { return at }

	l.Dispatch(Receive{Notification: models.Notification{Type: models.NotificationMatchUpdate, Payload: models.MatchUpdatePayload{MatchID: "m"}}})
	l.Dispatch(Receive{Notification: l.Live(models.MatchUpdatePayload{MatchID: "m"})})

	items := l.Items()
	require.Len(t, items, 1, "same delivery instant collides")
	assert.Equal(t, "live-1700000000000000042", items[0].ID)
	assert.Equal(t, at, items[0].Timestamp)
}

func TestSeedAppendsUnseen(t *testing.T) {
	l := New(nil, nil, nil)
	l.Dispatch(Receive{Notification: note("live-9", models.NotificationNewPost, models.NewPostPayload{PostID: "p"})})

	l.Dispatch(Seed{Notifications: []models.Notification{
		note("s3", models.NotificationComment, models.CommentPayload{PostID: "p", UserID: 1}),
		note("live-9", models.NotificationNewPost, models.NewPostPayload{PostID: "p"}),
		note("s1", models.NotificationMention, models.MentionPayload{PostID: "p", UserID: 1}),
	}})

	assert.Equal(t, []string{"live-9", "s3", "s1"}, ids(l.Items()))
}

func TestMarkAllRead(t *testing.T) {
	l := New(nil, nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		l.Dispatch(Receive{Notification: note(id, models.NotificationSystem, models.SystemPayload{Message: id})})
	}
	before := l.Items()

	l.Dispatch(MarkAllRead{})

	after := l.Items()
	require.Len(t, after, len(before))
	for i := range after {
		assert.True(t, after[i].Read)
		before[i].Read = true
		assert.Equal(t, before[i], after[i])
	}
	assert.Zero(t, l.UnreadCount())
}

func TestReset(t *testing.T) {
	l := New(nil, nil, nil)
	l.Dispatch(Receive{Notification: note("a", models.NotificationSystem, models.SystemPayload{Message: "a"})})
	l.Dispatch(Reset{})
	assert.Empty(t, l.Items())

	l.Dispatch(Receive{Notification: note("a", models.NotificationSystem, models.SystemPayload{Message: "a"})})
	assert.Len(t, l.Items(), 1, "ids are forgotten on reset")
}

func TestPartition(t *testing.T) {
	items := []models.Notification{
		note("1", models.NotificationReaction, models.ReactionPayload{}),
		note("2", models.NotificationMatchUpdate, models.MatchUpdatePayload{}),
		note("3", models.NotificationFollow, models.FollowPayload{}),
		note("4", models.NotificationSystem, models.SystemPayload{}),
	}
	personal, global := Partition(items)
	assert.Equal(t, []string{"1", "3"}, ids(personal))
	assert.Equal(t, []string{"2", "4"}, ids(global))
}

type names map[int64]models.User

func (n names) Peek(id int64) (models.User, bool) {
	u, ok := n[id]
	return u, ok
}

func TestLabel(t *testing.T) {
	known := names{1: {ID: 1, Name: "Ana"}}
	tests := []struct {
		payload models.Payload
		want    string
	}{
		{models.ReactionPayload{UserID: 1}, "Ana reagiu ao seu post"},
		{models.CommentPayload{UserID: 1, Text: "golaço"}, "Ana comentou: golaço"},
		{models.MentionPayload{UserID: 5}, "Usuário #5 mencionou você"},
		{models.FollowPayload{UserID: 1}, "Ana começou a seguir você"},
		{models.NewPostPayload{AuthorID: 1}, "Novo post de Ana"},
		{models.NewPollPayload{Question: "Quem vence?"}, "Nova enquete: Quem vence?"},
		{models.MatchUpdatePayload{HomeScore: 2, AwayScore: 1, Status: "2º tempo"}, "Placar atualizado: 2 x 1 (2º tempo)"},
		{models.TimelineUpdatePayload{Minute: 37, Description: "Gol!"}, "37' Gol!"},
		{models.SystemPayload{Title: "Aviso", Message: "manutenção"}, "Aviso: manutenção"},
	}
	for _, tt := range tests {
		t.Run(string(tt.payload.NotificationType()), func(t *testing.T) {
			n := models.Notification{Type: tt.payload.NotificationType(), Payload: tt.payload}
			assert.Equal(t, tt.want, Label(n, known))
		})
	}
}

type fakeRemote struct {
	items   []models.Notification
	err     error
	marked  int
	markErr error
}

func (f *fakeRemote) FetchNotifications(context.Context) ([]models.Notification, error) {
	return f.items, f.err
}

func (f *fakeRemote) MarkNotificationsRead(context.Context) error {
	f.marked++
	return f.markErr
}

type inlineConfirmer struct{}

func (inlineConfirmer) Submit(_ string, fn confirm.Func, _ ...zap.Field) {
	_ = fn(context.Background())
}

func TestHydrateAndMarkRemote(t *testing.T) {
	remote := &fakeRemote{items: []models.Notification{
		note("1", models.NotificationSystem, models.SystemPayload{Message: "x"}),
	}}
	l := New(remote, inlineConfirmer{}, nil)

	require.NoError(t, l.Hydrate(context.Background()))
	assert.Equal(t, 1, l.UnreadCount())

	remote.markErr = errors.New("HTTP 500")
	l.MarkAllReadRemote()
	assert.Zero(t, l.UnreadCount(), "failed confirmation keeps local read state")
	assert.Equal(t, 1, remote.marked)

	remote.err = errors.New("offline")
	assert.Error(t, l.Hydrate(context.Background()))
	assert.Len(t, l.Items(), 1)
}
