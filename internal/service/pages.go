package service

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/render"
	"github.com/pokerjest/showshelf/internal/settings"
	"github.com/spf13/afero"
)

type Lister interface {
	List(ctx context.Context) ([]model.ShowRecord, error)
}

// Pages renders the library using the persisted settings.
type Pages struct {
	shows    Lister
	settings *settings.Store
	fs       afero.Fs
	log      hclog.Logger

	mu sync.Mutex // one writer per output file
}

func NewPages(shows Lister, st *settings.Store, fs afero.Fs, log hclog.Logger) *Pages {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Pages{shows: shows, settings: st, fs: fs, log: log}
}

func (p *Pages) options(s settings.Settings) render.Options {
	return render.Options{Theme: s.Theme, Fs: p.fs}
}

// Generate writes the page to outPath, or to the saved output path when outPath is empty.
// A non-empty outPath becomes the new saved output path.
func (p *Pages) Generate(ctx context.Context, outPath string) (string, error) {
	s := p.settings.Load()
	outPath = strings.TrimSpace(outPath)
	if outPath != "" && outPath != s.OutputPath {
		s.OutputPath = outPath
		if err := p.settings.Save(s); err != nil {
			p.log.Warn("failed to remember output path", "error", err)
		}
	}

	shows, err := p.shows.List(ctx)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := render.WriteFile(p.fs, s.OutputPath, shows, p.options(s)); err != nil {
		return "", err
	}
	p.log.Info("page generated", "path", s.OutputPath, "shows", len(shows))
	return s.OutputPath, nil
}

// Write renders the page to w without touching the output file.
func (p *Pages) Write(ctx context.Context, w io.Writer) error {
	shows, err := p.shows.List(ctx)
	if err != nil {
		return err
	}
	return render.Render(w, shows, p.options(p.settings.Load()))
}

func (p *Pages) OutputPath() string {
	return p.settings.Load().OutputPath
}

func (p *Pages) Fs() afero.Fs {
	return p.fs
}
