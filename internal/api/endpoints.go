package api

import (
	"context"
	"fmt"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

// FetchUser returns a user profile.
func (c *Client) FetchUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := c.Get(ctx, fmt.Sprintf("/users/%d", id), &u)
	return u, err
}

// FetchTeam returns a team.
func (c *Client) FetchTeam(ctx context.Context, id int64) (models.Team, error) {
	var t models.Team
	err := c.Get(ctx, fmt.Sprintf("/teams/%d", id), &t)
	return t, err
}

// FetchPosts returns the feed, newest first.
func (c *Client) FetchPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := c.Get(ctx, "/posts", &posts)
	return posts, err
}

// FetchPolls returns the raw polls.
func (c *Client) FetchPolls(ctx context.Context) ([]models.PollRecord, error) {
	var polls []models.PollRecord
	err := c.Get(ctx, "/polls", &polls)
	return polls, err
}

// FetchNotifications returns the notification history, newest first.
// Items that do not decode, such as types this client does not know yet, are skipped.
func (c *Client) FetchNotifications(ctx context.Context) ([]models.Notification, error) {
	var raw []jsoniter.RawMessage
	if err := c.Get(ctx, "/notifications", &raw); err != nil {
		return nil, err
	}
	items := make([]models.Notification, 0, len(raw))
	for i, r := range raw {
		var n models.Notification
		if err := json.Unmarshal(r, &n); err != nil {
			c.logger.Debug("skipping notification", zap.Int("index", i), zap.Error(err))
			continue
		}
		items = append(items, n)
	}
	return items, nil
}

type reactionRequest struct {
	Reaction models.ReactionKind `json:"reaction"`
	UserID   int64               `json:"userId"`
}

// ReactToPost confirms a reaction.
func (c *Client) ReactToPost(ctx context.Context, postID string, kind models.ReactionKind, userID int64) error {
	return c.Post(ctx, "/posts/"+url.PathEscape(postID)+"/reactions", reactionRequest{Reaction: kind, UserID: userID}, nil)
}

type commentRequest struct {
	Text   string `json:"text"`
	UserID int64  `json:"userId"`
}

// CommentOnPost confirms a comment.
func (c *Client) CommentOnPost(ctx context.Context, postID, text string, userID int64) error {
	return c.Post(ctx, "/posts/"+url.PathEscape(postID)+"/comments", commentRequest{Text: text, UserID: userID}, nil)
}

type voteRequest struct {
	Option string `json:"option"`
	UserID int64  `json:"userId"`
}

// VotePoll confirms a vote.
func (c *Client) VotePoll(ctx context.Context, pollID, optionValue string, userID int64) error {
	return c.Post(ctx, "/polls/"+url.PathEscape(pollID)+"/vote", voteRequest{Option: optionValue, UserID: userID}, nil)
}

// MarkNotificationsRead confirms mark-all-read.
func (c *Client) MarkNotificationsRead(ctx context.Context) error {
	return c.Patch(ctx, "/notifications/read-all", nil, nil)
}
