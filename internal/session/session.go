// Package session keeps the persisted bearer token and derives the signed-in user id from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrNoSession is returned when no token is stored.
	ErrNoSession = errors.New("no active session")
	// ErrNoUserID is returned when the stored token carries no user id claim.
	ErrNoUserID = errors.New("token has no user id")
)

// Claims holds the claims read from the backend-issued token.
// The backend puts the numeric user id in user_id; older tokens only carry sub.
type Claims struct {
	UserID int64 `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenStore persists the bearer token across process restarts.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error) // "" with nil error when signed out
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Session is the persisted-session accessor.
type Session struct {
	store  TokenStore
	parser *jwt.Parser
	logger *zap.Logger
}

// New creates a session accessor backed by store.
func New(store TokenStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{store: store, parser: jwt.NewParser(), logger: logger}
}

// Token returns the stored bearer token.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := s.store.LoadToken(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// CurrentUserID returns the id of the signed-in user.
func (s *Session) CurrentUserID(ctx context.Context) (int64, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return 0, err
	}
	return UserIDFromToken(s.parser, token)
}

// SignIn stores token after checking it carries a user id.
func (s *Session) SignIn(ctx context.Context, token string) (int64, error) {
	userID, err := UserIDFromToken(s.parser, token)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveToken(ctx, token); err != nil {
		return 0, fmt.Errorf("save token: %w", err)
	}
	s.logger.Info("session stored", zap.Int64("user_id", userID))
	return userID, nil
}

// SignOut forgets the stored token.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// UserIDFromToken reads the user id claim without verifying the signature.
// The client never holds the signing key; the backend verifies every request.
func UserIDFromToken(parser *jwt.Parser, token string) (int64, error) {
	var claims Claims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID != 0 {
		return claims.UserID, nil
	}
	if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil && id != 0 {
		return id, nil
	}
	return 0, ErrNoUserID
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
