// Package feed holds the ordered post collection and its mutation primitives.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/confirm"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrInvalidReaction = errors.New("invalid reaction kind")
	ErrEmptyComment    = errors.New("comment text is required")
)

// resolveLimit bounds concurrent author lookups after a bulk replace.
const resolveLimit = 8

// Remote is the REST surface the store hydrates from and confirms against.
type Remote interface {
	FetchPosts(ctx context.Context) ([]models.Post, error)
	ReactToPost(ctx context.Context, postID string, kind models.ReactionKind, userID int64) error
	CommentOnPost(ctx context.Context, postID, text string, userID int64) error
}

// AuthorResolver warms the user cache for post authors.
type AuthorResolver interface {
	Get(ctx context.Context, id int64) (models.User, bool)
}

// Confirmer runs a confirmation call in the background.
type Confirmer interface {
	Submit(name string, fn confirm.Func, fields ...zap.Field)
}

// Store is the process-wide feed. Each method is one state transition under the store lock.
type Store struct {
	mu    sync.RWMutex
	posts []models.Post
	index map[string]int

	remote    Remote
	authors   AuthorResolver
	confirmer Confirmer
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an empty store.
func New(remote Remote, authors AuthorResolver, confirmer Confirmer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		index:     make(map[string]int),
		remote:    remote,
		authors:   authors,
		confirmer: confirmer,
		logger:    logger,
		now:       time.Now,
	}
}

// ReplaceAll swaps the whole collection, keeping the first occurrence of a duplicated id.
// Authors are resolved in the background; the call does not wait for them.
func (s *Store) ReplaceAll(posts []models.Post) {
	unique := lo.UniqBy(posts, func(p models.Post) string { return p.ID })
	next := make([]models.Post, len(unique))
	index := make(map[string]int, len(unique))
	for i, p := range unique {
		next[i] = p.Clone()
		index[p.ID] = i
	}

	s.mu.Lock()
	s.posts = next
	s.index = index
	s.mu.Unlock()

	authorIDs := lo.Uniq(lo.Map(unique, func(p models.Post, _ int) int64 { return p.AuthorID }))
	go s.resolveAuthors(authorIDs)
}

func (s *Store) resolveAuthors(ids []int64) {
	if s.authors == nil || len(ids) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(resolveLimit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, ok := s.authors.Get(context.Background(), id); !ok {
				s.logger.Debug("author not resolved", zap.Int64("user_id", id))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Patch replaces the post with the same id. Unknown ids are dropped.
func (s *Store) Patch(post models.Post) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[post.ID]
	if !ok {
		s.logger.Debug("patch for unknown post dropped", zap.String("post_id", post.ID))
		return false
	}
	s.posts[i] = post.Clone()
	return true
}

// AddReaction sets userID's reaction on the post to kind.
// The voter is removed from every other kind, so a user holds at most one reaction.
func (s *Store) AddReaction(postID string, kind models.ReactionKind, userID int64) bool {
	if !kind.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[postID]
	if !ok {
		return false
	}
	reactions := s.posts[i].Reactions
	for _, k := range models.ReactionKinds {
		if k == kind {
			continue
		}
		reactions[k] = lo.Without(reactions[k], userID)
	}
	if !lo.Contains(reactions[kind], userID) {
		reactions[kind] = append(reactions[kind], userID)
	}
	return true
}

// AddComment appends a comment stamped with the current time. Every call appends.
func (s *Store) AddComment(postID, text string, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[postID]
	if !ok {
		return false
	}
	s.posts[i].Comments = append(s.posts[i].Comments, models.Comment{
		UserID:    userID,
		Text:      text,
		Timestamp: s.now(),
	})
	return true
}

// React applies a reaction locally and queues its confirmation.
// A failed confirmation is logged and the local reaction stays.
func (s *Store) React(postID string, kind models.ReactionKind, userID int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidReaction, kind)
	}
	if !s.AddReaction(postID, kind, userID) {
		return ErrPostNotFound
	}
	s.confirm("react to post", func(ctx context.Context) error {
		return s.remote.ReactToPost(ctx, postID, kind, userID)
	}, zap.String("post_id", postID), zap.String("reaction", string(kind)), zap.Int64("user_id", userID))
	return nil
}

// Comment appends a comment locally and queues its confirmation.
func (s *Store) Comment(postID, text string, userID int64) error {
	if text == "" {
		return ErrEmptyComment
	}
	if !s.AddComment(postID, text, userID) {
		return ErrPostNotFound
	}
	s.confirm("comment on post", func(ctx context.Context) error {
		return s.remote.CommentOnPost(ctx, postID, text, userID)
	}, zap.String("post_id", postID), zap.Int64("user_id", userID))
	return nil
}

func (s *Store) confirm(name string, fn confirm.Func, fields ...zap.Field) {
	if s.confirmer == nil || s.remote == nil {
		return
	}
	s.confirmer.Submit(name, fn, fields...)
}

// Hydrate fetches the feed and replaces the collection. On failure the current state is kept.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	posts, err := s.remote.FetchPosts(ctx)
	if err != nil {
		s.logger.Warn("feed hydration failed", zap.Error(err))
		return fmt.Errorf("fetch posts: %w", err)
	}
	s.ReplaceAll(posts)
	s.logger.Debug("feed hydrated", zap.Int("posts", len(posts)))
	return nil
}

// Posts returns a copy of the ordered collection.
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.posts, func(p models.Post, _ int) models.Post { return p.Clone() })
}

// Post returns a copy of one post.
func (s *Store) Post(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Post{}, false
	}
	return s.posts[i].Clone(), true
}

// Len returns the number of posts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// Reset empties the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = nil
	s.index = make(map[string]int)
}
