// Package app wires the configured components together for the binaries.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/batch"
	"github.com/pokerjest/showshelf/internal/config"
	"github.com/pokerjest/showshelf/internal/db"
	"github.com/pokerjest/showshelf/internal/event"
	"github.com/pokerjest/showshelf/internal/matcher"
	"github.com/pokerjest/showshelf/internal/omdb"
	"github.com/pokerjest/showshelf/internal/poster"
	"github.com/pokerjest/showshelf/internal/publish"
	"github.com/pokerjest/showshelf/internal/service"
	"github.com/pokerjest/showshelf/internal/settings"
	"github.com/pokerjest/showshelf/internal/store"
	"github.com/pokerjest/showshelf/internal/tmdb"
	"github.com/spf13/afero"
	"gorm.io/gorm"
)

// DefaultPageName is the file written under output.dir until the user picks another path.
const DefaultPageName = "tv_suggestions.html"

const userAgent = tmdb.DefaultUserAgent

type App struct {
	Config    *config.Config
	Log       hclog.Logger
	Fs        afero.Fs
	DB        *gorm.DB
	Store     *store.Store
	TMDB      *tmdb.Client
	OMDb      *omdb.Client
	Library   *service.Library
	Pages     *service.Pages
	Settings  *settings.Store
	Registry  *batch.Registry
	Publisher *publish.Publisher
	Bus       *event.InMemoryBus
	Options   service.Options
}

// New opens the cache and builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, log hclog.Logger) (*App, error) {
	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	bus := event.NewInMemoryBus()

	tm := tmdb.NewClient(tmdb.Config{
		APIKey:    cfg.TMDB.APIKey,
		Token:     cfg.TMDB.Token,
		BaseURL:   cfg.TMDB.BaseURL,
		Proxy:     cfg.TMDB.Proxy,
		UserAgent: userAgent,
	})
	om := omdb.NewClient(omdb.Config{
		APIKey:    cfg.OMDb.APIKey,
		BaseURL:   cfg.OMDb.BaseURL,
		Proxy:     cfg.TMDB.Proxy,
		UserAgent: userAgent,
	})
	if !tm.Configured() {
		log.Warn("TMDB credentials missing; lookups will fail until TMDB_API_KEY or API_TMDB_TOKEN is set")
	}
	if !om.Configured() {
		log.Info("OMDb key missing; critic scores are skipped")
	}

	st := store.New(conn)
	lib := service.NewLibrary(service.Deps{
		Store:     st,
		Metadata:  tm,
		Ratings:   om,
		Matcher:   matcher.New(tm, matcher.ParseAliases(cfg.Matcher.Aliases), log.Named("matcher")),
		Posters:   poster.NewSaver(fs, cfg.Poster.Dir),
		Processor: batch.NewProcessor(cfg.Batch.Workers, log.Named("batch")),
		Bus:       bus,
		Log:       log.Named("library"),
	})

	settingsStore := settings.NewStore(fs, cfg.Settings.Path, filepath.Join(cfg.Output.Dir, DefaultPageName))

	pub, err := publish.New(ctx, publish.Config{
		Endpoint:  cfg.Publish.Endpoint,
		Region:    cfg.Publish.Region,
		Bucket:    cfg.Publish.Bucket,
		Key:       cfg.Publish.Key,
		AccessKey: cfg.Publish.AccessKey,
		SecretKey: cfg.Publish.SecretKey,
		PublicURL: cfg.Publish.PublicURL,
	})
	if err != nil {
		_ = db.Close(conn)
		return nil, fmt.Errorf("publisher: %w", err)
	}

	return &App{
		Config:    cfg,
		Log:       log,
		Fs:        fs,
		DB:        conn,
		Store:     st,
		TMDB:      tm,
		OMDb:      om,
		Library:   lib,
		Pages:     service.NewPages(lib, settingsStore, fs, log.Named("pages")),
		Settings:  settingsStore,
		Registry:  batch.NewRegistry(bus, log.Named("registry")),
		Publisher: pub,
		Bus:       bus,
		Options:   service.Options{FetchRatings: cfg.Batch.FetchRatings && om.Configured()},
	}, nil
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
