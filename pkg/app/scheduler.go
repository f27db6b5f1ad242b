package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a periodic job. A task never overlaps itself: a slow run makes
// the ticker drop ticks rather than queue them.
type Task struct {
	Name     string
	Interval time.Duration
	// Guard, if set, is checked every tick; the run is skipped when false.
	Guard func() bool
	// Immediate runs the task once before the first tick.
	Immediate bool
	Fn        func(ctx context.Context)
}

// TaskStats are per-task counters.
type TaskStats struct {
	Runs    uint64 `json:"runs"`
	Skipped uint64 `json:"skipped"`
}

type task struct {
	Task
	runs    atomic.Uint64
	skipped atomic.Uint64
}

// Scheduler runs tasks on independent tickers.
type Scheduler struct {
	tasks  []*task
	logger *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a task. Call before Run.
func (s *Scheduler) Add(t Task) {
	s.tasks = append(s.tasks, &task{Task: t})
}

// Run starts every task and blocks until ctx is done and all runs return.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range s.tasks {
		wg.Add(1)
		go func(t *task) {
			defer wg.Done()
			s.loop(ctx, t)
		}(t)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	s.logger.Debug("task started", "task", t.Name, "interval", t.Interval)
	defer s.logger.Debug("task stopped", "task", t.Name)

	if t.Immediate {
		s.runOnce(ctx, t)
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t *task) {
	if ctx.Err() != nil {
		return
	}
	if t.Guard != nil && !t.Guard() {
		t.skipped.Add(1)
		return
	}
	t.runs.Add(1)
	t.Fn(ctx)
}

// Stats returns counters keyed by task name.
func (s *Scheduler) Stats() map[string]TaskStats {
	out := make(map[string]TaskStats, len(s.tasks))
	for _, t := range s.tasks {
		out[t.Name] = TaskStats{Runs: t.runs.Load(), Skipped: t.skipped.Load()}
	}
	return out
}
