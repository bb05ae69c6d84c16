package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/config"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/parser"
	"github.com/sourcegraph/conc/pool"
)

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// Task is one unit of batch work: either a parsed title to add or a cache key to refresh.
type Task struct {
	Index int
	Item  *parser.Item
	Key   string
}

func (t Task) Label() string {
	if t.Item != nil {
		return t.Item.String()
	}
	return t.Key
}

// Executor performs one task. stop reports whether the batch was cancelled;
// implementations check it before and after their network calls.
type Executor interface {
	Execute(ctx context.Context, t Task, stop func() bool) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, t Task, stop func() bool) error

func (f ExecutorFunc) Execute(ctx context.Context, t Task, stop func() bool) error {
	return f(ctx, t, stop)
}

// Result is emitted once per task. Completed/Total is the progress after this item.
type Result struct {
	Task      Task
	Outcome   Outcome
	Err       error
	Completed int
	Total     int
}

func (r Result) String() string {
	if r.Err != nil && r.Outcome != OutcomeCancelled {
		return fmt.Sprintf("%s: %s: %v", r.Task.Label(), r.Outcome, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Task.Label(), r.Outcome)
}

type Summary struct {
	Total     int   `json:"total"`
	Succeeded int   `json:"succeeded"`
	NotFound  int   `json:"not_found"`
	Failed    int   `json:"failed"`
	Cancelled int   `json:"cancelled"`
	ConfigErr error `json:"-"`
}

// Failures counts not-found and errored items together.
func (s Summary) Failures() int {
	return s.NotFound + s.Failed
}

// Classify maps an executor error to its outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, model.ErrCancelled):
		return OutcomeCancelled
	case errors.Is(err, model.ErrNotFound):
		return OutcomeNotFound
	}
	return OutcomeError
}

// Processor runs task lists on a bounded worker pool.
type Processor struct {
	Workers int
	Log     hclog.Logger
}

func NewProcessor(workers int, log hclog.Logger) *Processor {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Processor{Workers: config.ClampWorkers(workers), Log: log}
}

// Batch is a running task list.
type Batch struct {
	id      string
	total   int
	log     hclog.Logger
	results chan Result
	done    chan struct{}

	cancelled atomic.Bool

	mu        sync.Mutex
	completed int
	summary   Summary
}

// Start dispatches tasks lazily: a task is handed to a worker only when one is free,
// so a cancel leaves the rest undispatched.
func (p *Processor) Start(ctx context.Context, tasks []Task, exec Executor) *Batch {
	log := p.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}
	b := &Batch{
		id:      uuid.New().String(),
		total:   len(tasks),
		log:     log,
		results: make(chan Result, len(tasks)),
		done:    make(chan struct{}),
		summary: Summary{Total: len(tasks)},
	}
	go b.run(ctx, tasks, exec, config.ClampWorkers(p.Workers))
	return b
}

func (b *Batch) run(ctx context.Context, tasks []Task, exec Executor, workers int) {
	defer close(b.done)
	defer close(b.results)

	b.log.Debug("batch started", "id", b.id, "tasks", b.total, "workers", workers)

	wp := pool.New().WithMaxGoroutines(workers)
	for i, t := range tasks {
		if b.stopped(ctx) {
			for _, rest := range tasks[i:] {
				b.report(rest, model.ErrCancelled)
			}
			break
		}
		t := t
		wp.Go(func() {
			b.report(t, b.execute(ctx, exec, t))
		})
	}
	wp.Wait()

	b.log.Debug("batch finished", "id", b.id, "succeeded", b.summary.Succeeded, "failures", b.summary.Failures(), "cancelled", b.summary.Cancelled)
}

func (b *Batch) execute(ctx context.Context, exec Executor, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("task panicked", "task", t.Label(), "panic", r)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	if b.stopped(ctx) {
		return model.ErrCancelled
	}
	return exec.Execute(ctx, t, func() bool { return b.stopped(ctx) })
}

func (b *Batch) report(t Task, err error) {
	outcome := Classify(err)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.completed++
	switch outcome {
	case OutcomeSuccess:
		b.summary.Succeeded++
	case OutcomeNotFound:
		b.summary.NotFound++
	case OutcomeCancelled:
		b.summary.Cancelled++
	default:
		b.summary.Failed++
	}
	if errors.Is(err, model.ErrConfig) && b.summary.ConfigErr == nil {
		// Every remaining item would fail the same way.
		b.summary.ConfigErr = err
		b.cancelled.Store(true)
	}

	// Buffered to the task count, never blocks.
	b.results <- Result{Task: t, Outcome: outcome, Err: err, Completed: b.completed, Total: b.total}
}

func (b *Batch) stopped(ctx context.Context) bool {
	return b.cancelled.Load() || ctx.Err() != nil
}

func (b *Batch) ID() string {
	return b.id
}

func (b *Batch) Total() int {
	return b.total
}

// Results yields one Result per task in completion order and is closed when the batch ends.
func (b *Batch) Results() <-chan Result {
	return b.results
}

// Cancel stops dispatch and makes running tasks report cancelled at their next check.
// In-flight requests are not interrupted.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
}

func (b *Batch) Cancelled() bool {
	return b.cancelled.Load()
}

func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every task has reported.
func (b *Batch) Wait() Summary {
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}

// Progress returns completed and total counts.
func (b *Batch) Progress() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed, b.total
}
