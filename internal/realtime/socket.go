package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when the outbound buffer cannot take another message.
	ErrSendBufferFull = errors.New("send buffer full")
)

const readLimit = 1 << 20

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
}

// TokenSource supplies the bearer token sent on every dial.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// SocketOptions configures SocketDialer.
type SocketOptions struct {
	URL               string
	PingInterval      time.Duration
	PongWait          time.Duration
	WriteWait         time.Duration
	ReconnectAttempts uint
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
	SendBuffer        int
}

func (o SocketOptions) withDefaults() SocketOptions {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.ReconnectAttempts == 0 {
		o.ReconnectAttempts = 10
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = time.Second
	}
	if o.ReconnectMaxDelay <= 0 {
		o.ReconnectMaxDelay = time.Minute
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// SocketDialer dials the push server over WebSocket.
type SocketDialer struct {
	opts   SocketOptions
	tokens TokenSource
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewSocketDialer creates a dialer. tokens may be nil for unauthenticated sockets.
func NewSocketDialer(opts SocketOptions, tokens TokenSource, logger *zap.Logger) *SocketDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketDialer{
		opts:   opts.withDefaults(),
		tokens: tokens,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		logger: logger,
	}
}

// Dial returns an unopened Socket.
func (d *SocketDialer) Dial() Conn {
	return &Socket{
		dialer:   d,
		handlers: newHandlers(d.logger),
		send:     make(chan WSMessage, d.opts.SendBuffer),
		events:   make(chan WSMessage, 256),
		logger:   d.logger,
	}
}

// Socket is a WebSocket push connection that reconnects on its own until closed.
// Events are dispatched on a separate goroutine so a slow handler does not stall the read pump.
type Socket struct {
	dialer   *SocketDialer
	handlers *handlers
	send     chan WSMessage
	events   chan WSMessage
	logger   *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool
	done   chan struct{}
}

func (s *Socket) On(tag string, h Handler) HandlerID { return s.handlers.on(tag, h) }

func (s *Socket) Off(tag string, id HandlerID) { s.handlers.off(tag, id) }

// Emit queues a message for the server. Messages queued while disconnected go out after the next connect.
func (s *Socket) Emit(tag string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", tag, err)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case s.send <- WSMessage{Event: tag, Data: data}:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Open starts the connect loop. It runs until ctx is done or Close is called.
func (s *Socket) Open(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.dispatch(ctx)
	go s.run(ctx)
}

// Close stops the connection. No events are dispatched afterwards.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, conn, done := s.cancel, s.conn, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = conn.Close()
	}
	if done != nil {
		<-done
	}
	return err
}

func (s *Socket) run(ctx context.Context) {
	defer close(s.done)
	first := true
	for {
		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("websocket reconnect abandoned", zap.Error(err))
				s.queue(ctx, WSMessage{Event: models.EventReconnectFailed})
			}
			return
		}
		if first {
			s.queue(ctx, WSMessage{Event: models.EventConnect})
			first = false
		} else {
			s.queue(ctx, WSMessage{Event: models.EventReconnect})
		}

		err = s.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("websocket disconnected", zap.Error(err))
		s.queue(ctx, WSMessage{Event: models.EventDisconnect})
	}
}

func (s *Socket) connect(ctx context.Context) (*websocket.Conn, error) {
	opts := s.dialer.opts
	var conn *websocket.Conn
	err := retry.Do(
		func() error {
			header := http.Header{}
			if s.dialer.tokens != nil {
				token, err := s.dialer.tokens.Token(ctx)
				if err != nil {
					return retry.Unrecoverable(fmt.Errorf("socket token: %w", err))
				}
				header.Set("Authorization", "Bearer "+token)
			}
			c, resp, err := s.dialer.dialer.DialContext(ctx, opts.URL, header)
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			if err != nil {
				if resp != nil && resp.StatusCode == http.StatusUnauthorized {
					return retry.Unrecoverable(fmt.Errorf("dial %s: %w", opts.URL, err))
				}
				return err
			}
			conn = c
			return nil
		},
		retry.Attempts(opts.ReconnectAttempts),
		retry.Delay(opts.ReconnectDelay),
		retry.MaxDelay(opts.ReconnectMaxDelay),
		retry.MaxJitter(opts.ReconnectDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("websocket dial failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	}
	s.conn = conn
	s.mu.Unlock()
	return conn, nil
}

// serve runs the read and write pumps until the connection drops.
func (s *Socket) serve(ctx context.Context, conn *websocket.Conn) error {
	opts := s.dialer.opts
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(conn, stop)
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	var err error
	for {
		var data []byte
		if _, data, err = conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		var msg WSMessage
		if json.Unmarshal(data, &msg) != nil || msg.Event == "" {
			s.logger.Debug("malformed websocket frame dropped", zap.Int("bytes", len(data)))
			continue
		}
		s.queue(ctx, msg)
	}

	close(stop)
	_ = conn.Close()
	<-writerDone
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	return err
}

func (s *Socket) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	opts := s.dialer.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case msg := <-s.send:
			frame, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("websocket write failed", zap.String("event", msg.Event), zap.Error(err))
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Socket) queue(ctx context.Context, msg WSMessage) {
	select {
	case s.events <- msg:
	case <-ctx.Done():
	}
}

func (s *Socket) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.events:
			if ctx.Err() != nil {
				return
			}
			s.handlers.fire(msg.Event, msg.Data)
		}
	}
}
