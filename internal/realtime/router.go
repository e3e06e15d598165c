package realtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// RouteFunc applies one decoded event to its store. Returning an error drops the event.
type RouteFunc func(ctx context.Context, payload []byte) error

// Router maps event tags to store mutations. It never interprets payloads itself.
type Router struct {
	mu     sync.RWMutex
	routes map[string]RouteFunc
	logger *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{routes: make(map[string]RouteFunc), logger: logger}
}

// Handle registers fn for tag, replacing any previous route.
func (r *Router) Handle(tag string, fn RouteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[tag] = fn
}

// Tags returns the routed tags in sorted order.
func (r *Router) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := lo.Keys(r.routes)
	sort.Strings(tags)
	return tags
}

// Dispatch routes one event. Unknown tags, rejected payloads and panics are logged and dropped.
func (r *Router) Dispatch(ctx context.Context, tag string, payload []byte) (ok bool) {
	r.mu.RLock()
	fn, found := r.routes[tag]
	r.mu.RUnlock()
	if !found {
		r.logger.Debug("unrouted event dropped", zap.String("event", tag))
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("event route panicked", zap.String("event", tag), zap.String("panic", fmt.Sprint(rec)))
			ok = false
		}
	}()
	if err := fn(ctx, payload); err != nil {
		r.logger.Debug("event dropped", zap.String("event", tag), zap.Error(err))
		return false
	}
	return true
}
