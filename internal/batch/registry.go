package batch

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/event"
)

// maxFinished bounds how many completed batches stay queryable.
const maxFinished = 32

// Status is a point-in-time view of a tracked batch.
type Status struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Total       int       `json:"total"`
	Completed   int       `json:"completed"`
	Succeeded   int       `json:"succeeded"`
	NotFound    int       `json:"not_found"`
	Failed      int       `json:"failed"`
	Cancelled   int       `json:"cancelled"`
	Running     bool      `json:"running"`
	LastMessage string    `json:"last_message"`
	Error       string    `json:"error,omitempty"`
	Messages    []string  `json:"messages,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

type entry struct {
	batch  *Batch
	status Status
}

// Registry keeps batches reachable by id for the web API and fans their progress out on the bus.
type Registry struct {
	mu      sync.RWMutex
	batches map[string]*entry
	bus     event.Bus
	log     hclog.Logger
}

func NewRegistry(bus event.Bus, log hclog.Logger) *Registry {
	if bus == nil {
		bus = event.Nop{}
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Registry{batches: make(map[string]*entry), bus: bus, log: log}
}

// Track consumes b's results. The caller must not read b.Results() afterwards.
func (r *Registry) Track(kind string, b *Batch) Status {
	e := &entry{batch: b, status: Status{
		ID:        b.ID(),
		Kind:      kind,
		Total:     b.Total(),
		Running:   true,
		StartedAt: time.Now(),
	}}

	r.mu.Lock()
	r.batches[b.ID()] = e
	snapshot := e.status
	r.mu.Unlock()

	go r.drain(e)
	return snapshot
}

func (r *Registry) drain(e *entry) {
	for res := range e.batch.Results() {
		msg := res.String()

		r.mu.Lock()
		st := &e.status
		st.Completed = res.Completed
		switch res.Outcome {
		case OutcomeSuccess:
			st.Succeeded++
		case OutcomeNotFound:
			st.NotFound++
		case OutcomeCancelled:
			st.Cancelled++
		default:
			st.Failed++
		}
		st.LastMessage = msg
		if res.Outcome != OutcomeSuccess {
			st.Messages = append(st.Messages, msg)
		}
		snapshot := *st
		snapshot.Messages = nil
		r.mu.Unlock()

		r.bus.Publish(event.EventBatchProgress, snapshot)
	}

	sum := e.batch.Wait()

	r.mu.Lock()
	e.status.Running = false
	e.status.FinishedAt = time.Now()
	if sum.ConfigErr != nil {
		e.status.Error = sum.ConfigErr.Error()
	}
	snapshot := e.status
	snapshot.Messages = append([]string(nil), e.status.Messages...)
	r.pruneLocked()
	r.mu.Unlock()

	r.log.Info("batch complete", "id", snapshot.ID, "kind", snapshot.Kind,
		"succeeded", snapshot.Succeeded, "not_found", snapshot.NotFound,
		"failed", snapshot.Failed, "cancelled", snapshot.Cancelled)
	r.bus.Publish(event.EventBatchComplete, snapshot)
}

func (r *Registry) pruneLocked() {
	var finished []*entry
	for _, e := range r.batches {
		if !e.status.Running {
			finished = append(finished, e)
		}
	}
	if len(finished) <= maxFinished {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].status.FinishedAt.Before(finished[j].status.FinishedAt)
	})
	for _, e := range finished[:len(finished)-maxFinished] {
		delete(r.batches, e.status.ID)
	}
}

func (r *Registry) Get(id string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.batches[id]
	if !ok {
		return Status{}, false
	}
	st := e.status
	st.Messages = append([]string(nil), e.status.Messages...)
	return st, true
}

// Cancel requests cooperative cancellation. False means the id is unknown.
func (r *Registry) Cancel(id string) bool {
	r.mu.RLock()
	e, ok := r.batches[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.batch.Cancel()
	return true
}

// List returns every tracked batch, newest first.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.batches))
	for _, e := range r.batches {
		st := e.status
		st.Messages = nil
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Running reports whether any tracked batch of the given kind is still going.
func (r *Registry) Running(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.batches {
		if e.status.Running && e.status.Kind == kind {
			return true
		}
	}
	return false
}
