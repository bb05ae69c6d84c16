package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/batch"
	"github.com/pokerjest/showshelf/internal/service"
)

const kindRefresh = "refresh"

type Refresher interface {
	MissingKeys(ctx context.Context, opts service.Options) ([]string, error)
	RefreshBatch(ctx context.Context, keys []string, opts service.Options) *batch.Batch
}

type Generator interface {
	Generate(ctx context.Context, outPath string) (string, error)
}

type Tracker interface {
	Track(kind string, b *batch.Batch) batch.Status
	Running(kind string) bool
}

// Manager periodically refreshes incomplete records and regenerates the page.
type Manager struct {
	interval time.Duration
	lib      Refresher
	pages    Generator
	registry Tracker
	opts     service.Options
	log      hclog.Logger

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewManager(interval time.Duration, lib Refresher, pages Generator, registry Tracker, opts service.Options, log hclog.Logger) *Manager {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Manager{
		interval: interval,
		lib:      lib,
		pages:    pages,
		registry: registry,
		opts:     opts,
		log:      log,
		quit:     make(chan struct{}),
	}
}

// Start runs the loop in the background. A zero interval disables the scheduler.
func (m *Manager) Start() {
	if m.interval <= 0 {
		m.log.Debug("scheduler disabled")
		return
	}
	m.log.Info("scheduler started", "interval", m.interval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.RunOnce()
			case <-m.quit:
				return
			}
		}
	}()
}

// Stop ends the loop and cancels a refresh in progress.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.quit) })
	m.wg.Wait()
	m.log.Info("scheduler stopped")
}

// RunOnce refreshes every record missing a poster or score, then regenerates the page.
// It skips the round when a refresh batch is already running.
func (m *Manager) RunOnce() {
	if m.registry.Running(kindRefresh) {
		m.log.Debug("refresh already running, skipping round")
		return
	}

	ctx := context.Background()
	keys, err := m.lib.MissingKeys(ctx, m.opts)
	if err != nil {
		m.log.Error("failed to list incomplete records", "error", err)
		return
	}

	if len(keys) > 0 {
		m.log.Info("refreshing incomplete records", "count", len(keys))
		b := m.lib.RefreshBatch(ctx, keys, m.opts)
		m.registry.Track(kindRefresh, b)

		select {
		case <-b.Done():
		case <-m.quit:
			b.Cancel()
			<-b.Done()
			return
		}
		if sum := b.Wait(); sum.ConfigErr != nil {
			m.log.Warn("refresh stopped", "error", sum.ConfigErr)
		}
	}

	path, err := m.pages.Generate(ctx, "")
	if err != nil {
		m.log.Error("scheduled page generation failed", "error", err)
		return
	}
	m.log.Debug("scheduled page generated", "path", path)
}
