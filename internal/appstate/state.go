// Package appstate builds the process-wide sync state and ties its lifecycle to the session.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/config"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/api"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/confirm"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/entitycache"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/feed"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/notifications"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/polls"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/realtime"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/session"
)

// Options configures New.
type Options struct {
	Config     config.Config
	Tokens     session.TokenStore
	Dialer     realtime.Dialer // defaults to a SocketDialer for Config.Socket
	HTTPClient *http.Client    // optional
}

// State holds every store of one process. Construct it once and pass it to consumers.
type State struct {
	Session       *session.Session
	API           *api.Client
	Cache         *entitycache.Backend
	Users         *entitycache.Cache[int64, models.User]
	Teams         *entitycache.Cache[int64, models.Team]
	Feed          *feed.Store
	Polls         *polls.Engine
	Notifications *notifications.Log
	Confirm       *confirm.Dispatcher
	Bridge        *realtime.Bridge

	// lifecycle serializes sign-in, resync and sign-out so a slow hydration cannot
	// repopulate stores after a sign-out cleared them.
	lifecycle sync.Mutex
	logger    *zap.Logger
}

// Snapshot is a summary of the current state.
type Snapshot struct {
	UserID        int64              `json:"userId,omitempty"`
	SignedIn      bool               `json:"signedIn"`
	Connection    realtime.ConnState `json:"connection"`
	Posts         int                `json:"posts"`
	Polls         int                `json:"polls"`
	Notifications int                `json:"notifications"`
	Unread        int                `json:"unread"`
	Pending       int                `json:"pendingConfirmations"`
}

// New wires the stores together.
func New(opts Options, logger *zap.Logger) (*State, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Tokens == nil {
		opts.Tokens = session.NewMemoryStore()
	}
	cfg := opts.Config

	sess := session.New(opts.Tokens, logger.Named("session"))
	client := api.New(api.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		Attempts:   cfg.API.Attempts,
		RetryDelay: cfg.API.RetryDelay,
		HTTPClient: opts.HTTPClient,
	}, sess, logger.Named("api"))

	backend, err := entitycache.NewBackend(entitycache.Config{
		NumCounters:  cfg.Cache.NumCounters,
		MaxEntries:   cfg.Cache.MaxEntries,
		FetchTimeout: cfg.Cache.FetchTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("entity cache: %w", err)
	}
	users := entitycache.New[int64, models.User](backend, "user", client.FetchUser, logger)
	teams := entitycache.New[int64, models.Team](backend, "team", client.FetchTeam, logger)

	dispatcher := confirm.NewDispatcher(cfg.Confirm.Buffer, cfg.Confirm.Timeout, logger.Named("confirm"))
	feedStore := feed.New(client, users, dispatcher, logger.Named("feed"))
	engine := polls.New(polls.Deps{Remote: client, Users: users, Teams: teams, Confirmer: dispatcher}, logger.Named("polls"))
	log := notifications.New(client, dispatcher, logger.Named("notifications"))

	router := realtime.Routes(realtime.Targets{
		Feed:          feedStore,
		Polls:         engine,
		Notifications: log,
	}, realtime.NewRouter(logger.Named("router")))

	dialer := opts.Dialer
	if dialer == nil {
		dialer = realtime.NewSocketDialer(realtime.SocketOptions{
			URL:               cfg.Socket.URL,
			PingInterval:      cfg.Socket.PingInterval,
			PongWait:          cfg.Socket.PongWait,
			WriteWait:         cfg.Socket.WriteWait,
			ReconnectAttempts: cfg.Socket.ReconnectAttempts,
			ReconnectDelay:    cfg.Socket.ReconnectDelay,
			ReconnectMaxDelay: cfg.Socket.ReconnectMaxDelay,
		}, sess, logger.Named("socket"))
	}

	return &State{
		Session:       sess,
		API:           client,
		Cache:         backend,
		Users:         users,
		Teams:         teams,
		Feed:          feedStore,
		Polls:         engine,
		Notifications: log,
		Confirm:       dispatcher,
		Bridge:        realtime.NewBridge(dialer, router, sess, logger.Named("bridge")),
		logger:        logger,
	}, nil
}

// Run processes background confirmations until ctx is done.
func (s *State) Run(ctx context.Context) {
	s.Confirm.Run(ctx)
}

// SignIn stores token and loads the session.
// Stores are cleared first when the token belongs to a different user.
func (s *State) SignIn(ctx context.Context, token string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	previous, prevErr := s.Session.CurrentUserID(ctx)
	userID, err := s.Session.SignIn(ctx, token)
	if err != nil {
		return err
	}
	if prevErr == nil && previous != userID {
		s.Bridge.Stop()
		s.reset(ctx)
	}
	return s.resync(ctx)
}

// Resync refetches feed, polls and notifications in parallel and re-keys the bridge.
// A failed fetch leaves that store as it was.
func (s *State) Resync(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.resync(ctx)
}

func (s *State) resync(ctx context.Context) error {
	if _, err := s.Session.CurrentUserID(ctx); err != nil {
		s.Bridge.Stop()
		if errors.Is(err, session.ErrNoSession) {
			return nil
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { _ = s.Feed.Hydrate(gctx); return nil })
	g.Go(func() error { _ = s.Polls.Hydrate(gctx); return nil })
	g.Go(func() error { _ = s.Notifications.Hydrate(gctx); return nil })
	_ = g.Wait()

	if err := s.Bridge.Sync(ctx); err != nil {
		return fmt.Errorf("sync bridge: %w", err)
	}
	s.logger.Info("state resynced",
		zap.Int("posts", s.Feed.Len()),
		zap.Int("polls", len(s.Polls.Polls())),
		zap.Int("notifications", len(s.Notifications.Items())))
	return nil
}

// SignOut tears down the bridge, clears every store and forgets the token.
func (s *State) SignOut(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.Bridge.Stop()
	s.reset(ctx)
	return s.Session.SignOut(ctx)
}

func (s *State) reset(ctx context.Context) {
	s.Notifications.Dispatch(notifications.Reset{})
	s.Feed.Reset()
	s.Polls.Reset()
	if err := s.Cache.Reset(ctx); err != nil {
		s.logger.Warn("entity cache reset failed", zap.Error(err))
	}
}

// CurrentUser returns the signed-in user, resolved through the user cache when possible.
func (s *State) CurrentUser(ctx context.Context) (models.User, error) {
	id, err := s.Session.CurrentUserID(ctx)
	if err != nil {
		return models.User{}, err
	}
	if u, ok := s.Users.Get(ctx, id); ok {
		return u, nil
	}
	return models.User{ID: id}, nil
}

// Snapshot summarizes the state.
func (s *State) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Connection:    s.Bridge.State(),
		Posts:         s.Feed.Len(),
		Polls:         len(s.Polls.Polls()),
		Notifications: len(s.Notifications.Items()),
		Unread:        s.Notifications.UnreadCount(),
		Pending:       s.Confirm.Pending(),
	}
	if id, err := s.Session.CurrentUserID(ctx); err == nil {
		snap.UserID = id
		snap.SignedIn = true
	}
	return snap
}

// Close releases the cache and the push connection.
func (s *State) Close() {
	s.Bridge.Stop()
	s.Cache.Close()
}
