package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotStarted is returned when enqueueing before Start or after Stop.
var ErrNotStarted = errors.New("queue not running")

// Job is a unit of background work routed to a handler by Type.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory worker pool. Failed jobs are retried with linear backoff
// until MaxRetries is exhausted, then dropped with an error log.
type Queue struct {
	name       string
	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	handlers map[string]Handler
	fallback Handler

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewQueue builds a queue. fallback handles job types without a registered handler and may be nil.
func NewQueue(name string, fallback Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:       name,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		handlers:   make(map[string]Handler),
		fallback:   fallback,
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Handle registers the handler for jobType, replacing any previous one.
func (q *Queue) Handle(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.running = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for in-flight jobs to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.Int("dropped", len(q.jobs)))
}

// Enqueue submits a job, assigning an ID when missing. It blocks while the buffer is full.
func (q *Queue) Enqueue(ctx context.Context, job Job) (string, error) {
	q.mu.RLock()
	running, qctx := q.running, q.ctx
	q.mu.RUnlock()
	if !running {
		return "", fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-qctx.Done():
		return "", fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	case q.jobs <- job:
		return job.ID, nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *Queue) process(job Job) {
	handler := q.handlerFor(job.Type)
	if handler == nil {
		q.logger.Warn("no handler for job", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return
	}
	if err := handler(q.ctx, job); err != nil {
		q.retry(job, err)
	}
}

func (q *Queue) handlerFor(jobType string) Handler {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if h, ok := q.handlers[jobType]; ok {
		return h
	}
	return q.fallback
}

func (q *Queue) retry(job Job, cause error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(cause))
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(cause))

	q.wg.Add(1)
	go func(j Job) {
		defer q.wg.Done()
		timer := time.NewTimer(q.retryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
		}
		select {
		case <-q.ctx.Done():
		case q.jobs <- j:
		}
	}(job)
}
