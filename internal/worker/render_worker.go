package worker

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/batch"
	"github.com/pokerjest/showshelf/internal/event"
)

type Generator interface {
	Generate(ctx context.Context, outPath string) (string, error)
}

// RenderWorker regenerates the page after library changes. Bursts of events
// collapse into a single render.
type RenderWorker struct {
	bus   event.Bus
	pages Generator
	log   hclog.Logger

	pending chan struct{}
	subs    map[event.EventType]string
	quit    chan struct{}
	wg      sync.WaitGroup
}

func NewRenderWorker(bus event.Bus, pages Generator, log hclog.Logger) *RenderWorker {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &RenderWorker{
		bus:     bus,
		pages:   pages,
		log:     log,
		pending: make(chan struct{}, 1),
		subs:    make(map[event.EventType]string),
		quit:    make(chan struct{}),
	}
}

// Start subscribes to library changes and finished batches.
func (w *RenderWorker) Start() {
	w.subs[event.EventLibraryChanged] = w.bus.Subscribe(event.EventLibraryChanged, func(event.Event) {
		w.request()
	})
	w.subs[event.EventBatchComplete] = w.bus.Subscribe(event.EventBatchComplete, func(e event.Event) {
		// Items already triggered renders as they landed; only react when something succeeded.
		if st, ok := e.Payload.(batch.Status); ok && st.Succeeded == 0 {
			return
		}
		w.request()
	})

	w.wg.Add(1)
	go w.loop()
	w.log.Info("auto-render worker started")
}

func (w *RenderWorker) Stop() {
	for t, id := range w.subs {
		w.bus.Unsubscribe(t, id)
	}
	close(w.quit)
	w.wg.Wait()
}

func (w *RenderWorker) request() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *RenderWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.pending:
			path, err := w.pages.Generate(context.Background(), "")
			if err != nil {
				w.log.Warn("auto-render failed", "error", err)
				continue
			}
			w.log.Debug("page re-rendered", "path", path)
		case <-w.quit:
			return
		}
	}
}
