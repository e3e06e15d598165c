package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) { return "", errors.New("signed out") }

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Timeout: time.Second, Attempts: 3, RetryDelay: time.Millisecond}, tokens, nil)
}

func TestGetUnwrapsDataEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"data":{"id":42,"name":"Marta","avatar":"m.png"}}`)
	}, staticToken("tok"))

	u, err := c.FetchUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: 42, Name: "Marta", Avatar: "m.png"}, u)
}

func TestGetDecodesBareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"p1","userId":3,"content":"hi"}]`)
	}, nil)

	posts, err := c.FetchPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, int64(3), posts[0].AuthorID)
}

func TestFetchNotificationsSkipsUndecodableItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":"n1","type":"follow","payload":{"userId":2}},
			{"id":"n2","type":"badge_earned","payload":{"badge":"gold"}},
			"oops",
			{"id":"n3","type":"system","payload":{"message":"Bem-vindo"}}
		]}`)
	}, nil)

	items, err := c.FetchNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, models.FollowPayload{UserID: 2}, items[0].Payload)
	assert.Equal(t, "n3", items[1].ID)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"data":[]}`)
	}, nil)

	_, err := c.FetchPolls(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
				assert.Equal(t, "poll not found", httpErr.Message)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"success":false,"error":"poll not found"}`)
			}, nil)

			err := c.VotePoll(context.Background(), "q1", "a", 7)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/posts/p%201/reactions", r.URL.EscapedPath())
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"reaction":"beast","userId":42}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}, nil)

	require.NoError(t, c.ReactToPost(context.Background(), "p 1", models.ReactionBeast, 42))
}

func TestTokenFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, failingToken{})

	err := c.MarkNotificationsRead(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Zero(t, calls.Load())
}
