package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pokerjest/showshelf/internal/batch"
	"github.com/pokerjest/showshelf/internal/parser"
	"github.com/pokerjest/showshelf/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLibrary struct {
	keys    []string
	err     error
	mu      sync.Mutex
	batches [][]string
}

func (f *fakeLibrary) MissingKeys(ctx context.Context, opts service.Options) ([]string, error) {
	return f.keys, f.err
}

func (f *fakeLibrary) RefreshBatch(ctx context.Context, keys []string, opts service.Options) *batch.Batch {
	f.mu.Lock()
	f.batches = append(f.batches, keys)
	f.mu.Unlock()

	tasks := make([]batch.Task, 0, len(keys))
	for i, k := range keys {
		tasks = append(tasks, batch.Task{Index: i, Key: k, Item: &parser.Item{Title: k}})
	}
	return batch.NewProcessor(2, nil).Start(ctx, tasks, batch.ExecutorFunc(func(context.Context, batch.Task, func() bool) error {
		return nil
	}))
}

type fakePages struct {
	calls atomic.Int32
	err   error
}

func (f *fakePages) Generate(ctx context.Context, outPath string) (string, error) {
	f.calls.Add(1)
	return "outputs/index.html", f.err
}

type fakeTracker struct {
	running bool
	tracked atomic.Int32
}

func (f *fakeTracker) Track(kind string, b *batch.Batch) batch.Status {
	f.tracked.Add(1)
	go func() {
		for range b.Results() {
		}
	}()
	return batch.Status{ID: b.ID(), Kind: kind}
}

func (f *fakeTracker) Running(string) bool { return f.running }

func TestRunOnce_RefreshesThenGenerates(t *testing.T) {
	lib := &fakeLibrary{keys: []string{"andor", "the bear"}}
	pages := &fakePages{}
	tr := &fakeTracker{}
	m := NewManager(time.Minute, lib, pages, tr, service.Options{}, nil)

	m.RunOnce()

	require.Len(t, lib.batches, 1)
	assert.Equal(t, []string{"andor", "the bear"}, lib.batches[0])
	assert.Equal(t, int32(1), tr.tracked.Load())
	assert.Equal(t, int32(1), pages.calls.Load())
}

func TestRunOnce_NothingMissingStillGenerates(t *testing.T) {
	lib := &fakeLibrary{}
	pages := &fakePages{}
	tr := &fakeTracker{}
	m := NewManager(time.Minute, lib, pages, tr, service.Options{}, nil)

	m.RunOnce()

	assert.Empty(t, lib.batches)
	assert.Equal(t, int32(0), tr.tracked.Load())
	assert.Equal(t, int32(1), pages.calls.Load())
}

func TestRunOnce_SkipsWhileRefreshRunning(t *testing.T) {
	lib := &fakeLibrary{keys: []string{"andor"}}
	pages := &fakePages{}
	m := NewManager(time.Minute, lib, pages, &fakeTracker{running: true}, service.Options{}, nil)

	m.RunOnce()

	assert.Empty(t, lib.batches)
	assert.Equal(t, int32(0), pages.calls.Load())
}

func TestRunOnce_ListErrorSkipsRender(t *testing.T) {
	lib := &fakeLibrary{err: errors.New("db locked")}
	pages := &fakePages{}
	m := NewManager(time.Minute, lib, pages, &fakeTracker{}, service.Options{}, nil)

	m.RunOnce()

	assert.Equal(t, int32(0), pages.calls.Load())
}

func TestStart_TicksUntilStopped(t *testing.T) {
	pages := &fakePages{}
	m := NewManager(10*time.Millisecond, &fakeLibrary{}, pages, &fakeTracker{}, service.Options{}, nil)

	m.Start()
	require.Eventually(t, func() bool { return pages.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()

	after := pages.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, pages.calls.Load())
}

func TestStart_ZeroIntervalDisabled(t *testing.T) {
	pages := &fakePages{}
	m := NewManager(0, &fakeLibrary{}, pages, &fakeTracker{}, service.Options{}, nil)

	m.Start()
	time.Sleep(20 * time.Millisecond)
	m.Stop()

	assert.Equal(t, int32(0), pages.calls.Load())
}
