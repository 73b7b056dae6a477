package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kodit-ai/kodit/domain/task"
)

// DefaultPollPeriod is how often an idle worker checks the queue.
const DefaultPollPeriod = time.Second

// Handler executes one task operation.
type Handler interface {
	Execute(ctx context.Context, payload map[string]any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload map[string]any) error

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, payload map[string]any) error {
	return f(ctx, payload)
}

// WorkerTracker marks the step owned by a task terminal.
type WorkerTracker interface {
	Fail(ctx context.Context, message string)
	Complete(ctx context.Context)
}

// WorkerTrackerFactory creates trackers bound to a task's trackable entity.
type WorkerTrackerFactory interface {
	ForOperation(operation task.Operation, trackableType task.TrackableType, trackableID int64) WorkerTracker
}

// Registry maps operations to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[task.Operation]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[task.Operation]Handler)}
}

// Register binds a handler to an operation.
func (r *Registry) Register(operation task.Operation, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[operation] = handler
}

// Handler returns the handler for an operation.
func (r *Registry) Handler(operation task.Operation) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[operation]
	return h, ok
}

// Worker claims tasks from the queue and dispatches them to handlers. A
// failed task is re-enqueued with backoff until its retry budget runs out,
// then dropped with its owning step marked failed. Tasks with an unknown
// operation are dropped immediately.
type Worker struct {
	store      TaskStore
	registry   *Registry
	trackers   WorkerTrackerFactory
	logger     *slog.Logger
	pollPeriod time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	busy   atomic.Bool
}

// NewWorker creates a Worker.
func NewWorker(store TaskStore, registry *Registry, trackers WorkerTrackerFactory, logger *slog.Logger) *Worker {
	return &Worker{
		store:      store,
		registry:   registry,
		trackers:   trackers,
		logger:     logger,
		pollPeriod: DefaultPollPeriod,
	}
}

// WithPollPeriod sets the idle poll period.
func (w *Worker) WithPollPeriod(d time.Duration) *Worker {
	if d > 0 {
		w.pollPeriod = d
	}
	return w
}

// Start runs the worker loop in a goroutine until Stop or context
// cancellation.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	w.logger.Info("queue worker started")
}

// Stop cancels the loop and waits for the in-flight task to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.logger.Info("queue worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain the queue before going back to sleep.
			for {
				processed, err := w.ProcessOne(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					w.logger.Error("task processing failed", slog.Any("error", err))
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// Busy reports whether the worker is mid-task.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// ProcessOne claims and runs a single task. It returns false when the queue
// had no eligible task.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	w.busy.Store(true)
	defer w.busy.Store(false)

	t, ok, err := w.store.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	w.dispatch(ctx, t)
	return true, nil
}

func (w *Worker) dispatch(ctx context.Context, t task.Task) {
	start := time.Now()
	logger := w.logger.With(
		slog.Int64("task_id", t.ID()),
		slog.String("operation", t.Operation().String()),
	)

	handler, ok := w.registry.Handler(t.Operation())
	if !ok || !t.Operation().IsValid() {
		// Fatal drop: retrying an unknown operation cannot help.
		logger.Error("unknown task operation, dropping")
		return
	}

	err := w.execute(ctx, handler, t)
	if err == nil {
		logger.Info("task completed", slog.Duration("duration", time.Since(start)))
		return
	}
	if ctx.Err() != nil {
		// Shutdown mid-task: the claim was consumed, put the work back
		// without burning a retry.
		if _, saveErr := w.store.Save(context.WithoutCancel(ctx), t); saveErr != nil {
			logger.Error("failed to requeue task on shutdown", slog.Any("error", saveErr))
		}
		return
	}

	if t.RetriesExhausted() {
		logger.Error("task failed permanently",
			slog.Any("error", err),
			slog.Int("retry_count", t.RetryCount()),
		)
		w.markFailed(ctx, t, err)
		return
	}

	retried := t.Retried(time.Now().UTC())
	if _, saveErr := w.store.Save(ctx, retried); saveErr != nil {
		logger.Error("failed to schedule retry", slog.Any("error", saveErr))
		w.markFailed(ctx, t, err)
		return
	}
	logger.Warn("task failed, retry scheduled",
		slog.Any("error", err),
		slog.Int("retry_count", retried.RetryCount()),
		slog.Time("next_retry_at", *retried.NextRetryAt()),
	)
}

func (w *Worker) execute(ctx context.Context, handler Handler, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Execute(ctx, t.Payload())
}

func (w *Worker) markFailed(ctx context.Context, t task.Task, err error) {
	if w.trackers == nil {
		return
	}
	trackableType, trackableID, ok := trackableFromPayload(t.Payload())
	if !ok {
		return
	}
	tracker := w.trackers.ForOperation(t.Operation(), trackableType, trackableID)
	tracker.Fail(ctx, err.Error())
}

// trackableFromPayload derives the entity a task reports on from its
// payload. Commit-scoped operations carry commit_id, repository-scoped ones
// repository_id.
func trackableFromPayload(payload map[string]any) (task.TrackableType, int64, bool) {
	if id, ok := payloadInt64(payload, "commit_id"); ok {
		return task.TrackableCommit, id, true
	}
	if id, ok := payloadInt64(payload, "repository_id"); ok {
		return task.TrackableRepository, id, true
	}
	return "", 0, false
}

// payloadInt64 reads an integer payload value, tolerating the float64 form
// JSON round-trips produce.
func payloadInt64(payload map[string]any, key string) (int64, bool) {
	switch v := payload[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
