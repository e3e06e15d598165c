package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationCategory(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want Category
	}{
		{NotificationReaction, CategoryPersonal},
		{NotificationComment, CategoryPersonal},
		{NotificationMention, CategoryPersonal},
		{NotificationFollow, CategoryPersonal},
		{NotificationNewPost, CategoryGlobal},
		{NotificationMatchUpdate, CategoryGlobal},
		{NotificationTimelineUpdate, CategoryGlobal},
		{NotificationType("something_new"), CategoryGlobal},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Category())
		})
	}
}

func TestNotificationUnmarshal(t *testing.T) {
	t.Run("numeric id and typed payload", func(t *testing.T) {
		var n Notification
		err := json.Unmarshal([]byte(`{"id":17,"type":"comment","payload":{"postId":"p1","userId":3,"text":"golaço"},"read":false,"createdAt":"2024-05-01T12:00:00Z"}`), &n)
		require.NoError(t, err)
		assert.Equal(t, "17", n.ID)
		assert.Equal(t, CommentPayload{PostID: "p1", UserID: 3, Text: "golaço"}, n.Payload)
		assert.Equal(t, 2024, n.Timestamp.Year())
	})

	t.Run("string id", func(t *testing.T) {
		var n Notification
		require.NoError(t, json.Unmarshal([]byte(`{"id":"abc","type":"follow","payload":{"userId":9}}`), &n))
		assert.Equal(t, "abc", n.ID)
		assert.Equal(t, FollowPayload{UserID: 9}, n.Payload)
	})

	t.Run("unknown type", func(t *testing.T) {
		var n Notification
		err := json.Unmarshal([]byte(`{"id":"x","type":"wat","payload":{}}`), &n)
		assert.ErrorIs(t, err, ErrUnknownNotificationType)
	})

	t.Run("list", func(t *testing.T) {
		var list []Notification
		require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"type":"system","payload":{"message":"oi"}},{"id":2,"type":"mention","payload":{"postId":"p","userId":1}}]`), &list))
		require.Len(t, list, 2)
		assert.Equal(t, NotificationSystem, list[0].Payload.NotificationType())
		assert.Equal(t, NotificationMention, list[1].Payload.NotificationType())
	})
}

func TestPostCloneNormalizesReactions(t *testing.T) {
	p := Post{
		ID: "p1",
		Reactions: Reactions{
			ReactionLiked: {1, 2, 1},
			ReactionBeast: {2, 3},
			"unknown":     {4},
		},
		Media: []string{"a.jpg"},
	}
	c := p.Clone()

	assert.Equal(t, []int64{1, 2}, c.Reactions[ReactionLiked])
	assert.Equal(t, []int64{3}, c.Reactions[ReactionBeast])
	assert.NotNil(t, c.Reactions[ReactionSad])
	assert.Empty(t, c.Reactions[ReactionSad])
	assert.NotContains(t, c.Reactions, ReactionKind("unknown"))

	c.Media[0] = "b.jpg"
	assert.Equal(t, "a.jpg", p.Media[0])
}

func TestReactionsKindOf(t *testing.T) {
	r := Reactions{ReactionFunny: {8}}
	k, ok := r.KindOf(8)
	assert.True(t, ok)
	assert.Equal(t, ReactionFunny, k)

	_, ok = r.KindOf(9)
	assert.False(t, ok)
}
