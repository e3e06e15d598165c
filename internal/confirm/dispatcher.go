// Package confirm runs fire-and-forget server confirmations for optimistic mutations.
package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Func is a confirmation call.
type Func func(ctx context.Context) error

// Job is one queued confirmation.
type Job struct {
	ID        string
	Name      string
	Fn        Func
	Fields    []zap.Field
	CreatedAt time.Time
}

// Dispatcher runs confirmation jobs in submission order on a single worker.
// A failed job is logged and dropped; local state is never rolled back.
type Dispatcher struct {
	jobs    chan Job
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher buffering up to buffer pending jobs.
func NewDispatcher(buffer int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		jobs:    make(chan Job, buffer),
		timeout: timeout,
		logger:  logger,
	}
}

// Submit queues fn without blocking. When the buffer is full the job is dropped with a warning.
func (d *Dispatcher) Submit(name string, fn Func, fields ...zap.Field) {
	job := Job{
		ID:        uuid.NewString(),
		Name:      name,
		Fn:        fn,
		Fields:    fields,
		CreatedAt: time.Now(),
	}
	select {
	case d.jobs <- job:
		d.logger.Debug("confirmation queued", append(fields, zap.String("job_id", job.ID), zap.String("name", name))...)
	default:
		d.logger.Warn("confirmation queue full, dropping", append(fields, zap.String("name", name))...)
	}
}

// Pending returns the number of queued jobs.
func (d *Dispatcher) Pending() int {
	return len(d.jobs)
}

// Run processes jobs until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("confirmation worker stopping", zap.Int("pending", len(d.jobs)))
			return
		case job := <-d.jobs:
			d.process(ctx, job)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	fields := append(job.Fields, zap.String("job_id", job.ID), zap.String("name", job.Name))
	if err := run(jobCtx, job.Fn); err != nil {
		d.logger.Warn("confirmation failed, keeping optimistic state", append(fields, zap.Error(err))...)
		return
	}
	d.logger.Debug("confirmation completed", append(fields, zap.Duration("queued_for", time.Since(job.CreatedAt)))...)
}

func run(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("confirmation panic: %v", r)
		}
	}()
	return fn(ctx)
}
