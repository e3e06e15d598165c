// Package realtime keeps one push connection per session and routes its events into the stores.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler receives the raw payload of one event.
type Handler func(payload []byte)

// HandlerID identifies a registration for Off.
type HandlerID uint64

// Conn is a push connection. Lifecycle tags (connect, disconnect, reconnect,
// reconnect_failed) are delivered through On like any other event.
type Conn interface {
	On(tag string, h Handler) HandlerID
	Off(tag string, id HandlerID)
	Emit(tag string, payload any) error
	// Open starts connecting. Handlers registered before Open see the first connect.
	Open(ctx context.Context)
	Close() error
}

// Dialer builds a fresh, unopened connection per session.
type Dialer interface {
	Dial() Conn
}

// handlers is a tag -> handler registry shared by Conn implementations.
type handlers struct {
	mu     sync.RWMutex
	next   HandlerID
	byTag  map[string]map[HandlerID]Handler
	logger *zap.Logger
}

func newHandlers(logger *zap.Logger) *handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &handlers{byTag: make(map[string]map[HandlerID]Handler), logger: logger}
}

func (r *handlers) on(tag string, h Handler) HandlerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	if r.byTag[tag] == nil {
		r.byTag[tag] = make(map[HandlerID]Handler)
	}
	r.byTag[tag][r.next] = h
	return r.next
}

func (r *handlers) off(tag string, id HandlerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byTag[tag]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(r.byTag, tag)
		}
	}
}

// fire calls every handler of tag. A panicking handler does not stop the others.
func (r *handlers) fire(tag string, payload []byte) {
	r.mu.RLock()
	snapshot := make([]Handler, 0, len(r.byTag[tag]))
	for _, h := range r.byTag[tag] {
		snapshot = append(snapshot, h)
	}
	r.mu.RUnlock()

	for _, h := range snapshot {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Warn("event handler panicked", zap.String("event", tag), zap.String("panic", fmt.Sprint(rec)))
				}
			}()
			h(payload)
		}()
	}
}
