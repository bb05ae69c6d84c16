package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/showshelf/internal/api"
	"github.com/pokerjest/showshelf/internal/app"
	"github.com/pokerjest/showshelf/internal/config"
	"github.com/pokerjest/showshelf/internal/logger"
	"github.com/pokerjest/showshelf/internal/scheduler"
	"github.com/pokerjest/showshelf/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	flag.Parse()

	if err := run(*configDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	// 1. Load Config
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, closer := logger.New(logger.Options{Name: "showshelf", Level: cfg.Log.Level, File: cfg.Log.File})
	defer closer.Close()

	// 2. Setup Gin Mode
	gin.SetMode(cfg.Server.Mode)

	absPath, _ := filepath.Abs(cfg.Database.Path)
	log.Info("initializing database", "path", absPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	r := gin.New()
	r.Use(api.Recovery(log.Named("http")), api.RequestLogger(log.Named("http")))
	api.InitRoutes(r, api.NewHandler(api.Deps{
		Library:   a.Library,
		Pages:     a.Pages,
		Registry:  a.Registry,
		Settings:  a.Settings,
		Publisher: a.Publisher,
		Bus:       a.Bus,
		Options:   a.Options,
		Log:       log.Named("api"),
	}))

	sch := scheduler.NewManager(cfg.Scheduler.Interval, a.Library, a.Pages, a.Registry, a.Options, log.Named("scheduler"))
	sch.Start()
	defer sch.Stop()

	if cfg.Page.AutoRender {
		w := worker.NewRenderWorker(a.Bus, a.Pages, log.Named("render"))
		w.Start()
		defer w.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		for _, st := range a.Registry.List() {
			if st.Running {
				a.Registry.Cancel(st.ID)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
