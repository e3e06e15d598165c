package confirm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunsJobsInOrder(t *testing.T) {
	d := NewDispatcher(8, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"vote a", "vote b", "vote c"} {
		name := name
		d.Submit(name, func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"vote a", "vote b", "vote c"}, order)
}

func TestFailuresAreLoggedNotRetried(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(8, time.Second, zap.New(core))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	calls := make(chan struct{}, 4)
	d.Submit("react", func(context.Context) error {
		calls <- struct{}{}
		return errors.New("HTTP 500")
	}, zap.String("post_id", "p1"))
	d.Submit("panics", func(context.Context) error {
		calls <- struct{}{}
		panic("boom")
	})

	assert.Eventually(t, func() bool { return logs.Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, calls, 2)
	entry := logs.All()[0]
	assert.Equal(t, "confirmation failed, keeping optimistic state", entry.Message)
	assert.Equal(t, "p1", entry.ContextMap()["post_id"])
}

func TestSubmitDropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(1, time.Second, zap.New(core))

	d.Submit("first", func(context.Context) error { return nil })
	d.Submit("second", func(context.Context) error { return nil })

	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, 1, logs.FilterMessage("confirmation queue full, dropping").Len())
}
