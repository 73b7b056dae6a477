package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/task"
)

// PeriodicSync re-enqueues the index task for every tracked repository on an
// interval. A zero interval disables it.
type PeriodicSync struct {
	repos    repository.Store
	queue    *Queue
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPeriodicSync creates a PeriodicSync.
func NewPeriodicSync(repos repository.Store, queue *Queue, interval time.Duration, logger *slog.Logger) *PeriodicSync {
	return &PeriodicSync{repos: repos, queue: queue, interval: interval, logger: logger}
}

// Start runs the sync loop in a goroutine. A no-op when disabled.
func (p *PeriodicSync) Start(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Info("periodic sync disabled")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
	p.logger.Info("periodic sync started", slog.Duration("interval", p.interval))
}

// Stop cancels the loop and waits for it to finish.
func (p *PeriodicSync) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *PeriodicSync) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.syncAll(ctx)
		}
	}
}

func (p *PeriodicSync) syncAll(ctx context.Context) {
	repos, err := p.repos.Find(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("periodic sync failed to list repositories", slog.Any("error", err))
		}
		return
	}

	tasks := make([]task.Task, 0, len(repos))
	for _, repo := range repos {
		tasks = append(tasks, task.New(
			task.OperationRepositoryIndex,
			strconv.FormatInt(repo.ID(), 10),
			task.PriorityBackground,
			map[string]any{"repository_id": repo.ID()},
		))
	}
	if err := p.queue.EnqueueAll(ctx, tasks); err != nil {
		if ctx.Err() == nil {
			p.logger.Error("periodic sync failed to enqueue", slog.Any("error", err))
		}
		return
	}
	p.logger.Debug("periodic sync enqueued", slog.Int("count", len(tasks)))
}
