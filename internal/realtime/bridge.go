package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

// ConnState is the bridge connection state.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// MarshalText renders the state by name.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionAccessor reports the signed-in user.
type SessionAccessor interface {
	CurrentUserID(ctx context.Context) (int64, error)
}

type registration struct {
	tag string
	id  HandlerID
}

// Bridge keeps exactly one push subscription per signed-in user.
type Bridge struct {
	dialer  Dialer
	router  *Router
	session SessionAccessor
	logger  *zap.Logger

	// lifecycle serializes Start, Stop and Sync.
	lifecycle sync.Mutex

	mu     sync.Mutex
	conn   Conn
	regs   []registration
	userID int64
	state  ConnState
	gen    uint64
}

// NewBridge creates a disconnected bridge.
func NewBridge(dialer Dialer, router *Router, session SessionAccessor, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{dialer: dialer, router: router, session: session, logger: logger}
}

// Start opens a fresh connection for userID, replacing any current one.
// The private channel is joined on every connect and reconnect.
func (b *Bridge) Start(ctx context.Context, userID int64) {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	b.stop()
	b.start(context.WithoutCancel(ctx), userID)
}

func (b *Bridge) start(ctx context.Context, userID int64) {
	conn := b.dialer.Dial()

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.conn = conn
	b.userID = userID
	b.state = Connecting
	b.regs = b.regs[:0]
	b.mu.Unlock()

	joined := func(event string) Handler {
		return func([]byte) {
			if !b.transition(gen, Connected) {
				return
			}
			if err := conn.Emit(models.EventJoin, userID); err != nil {
				b.logger.Warn("join failed", zap.Int64("user_id", userID), zap.Error(err))
				return
			}
			b.logger.Info("joined private channel", zap.Int64("user_id", userID), zap.String("on", event))
		}
	}
	b.register(conn, models.EventConnect, joined(models.EventConnect))
	b.register(conn, models.EventReconnect, joined(models.EventReconnect))
	b.register(conn, models.EventDisconnect, func([]byte) {
		if b.transition(gen, Reconnecting) {
			b.logger.Info("push connection lost, reconnecting", zap.Int64("user_id", userID))
		}
	})
	b.register(conn, models.EventReconnectFailed, func([]byte) {
		if b.transition(gen, Disconnected) {
			b.logger.Warn("push connection abandoned", zap.Int64("user_id", userID))
		}
	})

	for _, tag := range b.router.Tags() {
		tag := tag
		b.register(conn, tag, func(payload []byte) {
			if !b.current(gen) {
				return
			}
			b.router.Dispatch(ctx, tag, payload)
		})
	}

	conn.Open(ctx)
}

func (b *Bridge) register(conn Conn, tag string, h Handler) {
	id := conn.On(tag, h)
	b.mu.Lock()
	b.regs = append(b.regs, registration{tag: tag, id: id})
	b.mu.Unlock()
}

// Stop closes the current connection. Events already in flight are not dispatched.
func (b *Bridge) Stop() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	b.stop()
}

func (b *Bridge) stop() {
	b.mu.Lock()
	conn, regs := b.conn, b.regs
	b.gen++
	b.conn = nil
	b.regs = nil
	b.userID = 0
	b.state = Disconnected
	b.mu.Unlock()

	if conn == nil {
		return
	}
	for _, r := range regs {
		conn.Off(r.tag, r.id)
	}
	if err := conn.Close(); err != nil {
		b.logger.Debug("push connection close", zap.Error(err))
	}
}

// Sync re-keys the bridge to the persisted session: it starts when a user signed in,
// restarts when the user changed and stops when signed out.
func (b *Bridge) Sync(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	userID, err := b.session.CurrentUserID(ctx)
	if err != nil {
		b.stop()
		return err
	}

	b.mu.Lock()
	same := b.conn != nil && b.userID == userID
	b.mu.Unlock()
	if same {
		return nil
	}
	b.stop()
	b.start(context.WithoutCancel(ctx), userID)
	return nil
}

// State returns the connection state.
func (b *Bridge) State() ConnState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// UserID returns the user the bridge is keyed on, 0 when stopped.
func (b *Bridge) UserID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userID
}

func (b *Bridge) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen == gen
}

func (b *Bridge) transition(gen uint64, to ConnState) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		return false
	}
	b.state = to
	return true
}
