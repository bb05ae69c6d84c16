package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/pokerjest/showshelf/internal/config"
	"github.com/pokerjest/showshelf/internal/db"
	"github.com/pokerjest/showshelf/internal/legacy"
	"github.com/pokerjest/showshelf/internal/logger"
	"github.com/pokerjest/showshelf/internal/store"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	src := flag.String("from", "", "legacy SQLite file")
	configDir := flag.String("config", ".", "directory holding config.yaml")
	flag.Parse()

	if *src == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate_legacy -from old.db [-config dir]")
		os.Exit(2)
	}
	if _, err := os.Stat(*src); err != nil {
		log.Fatalf("legacy database: %v", err)
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lg, closer := logger.New(logger.Options{Name: "migrate", Level: cfg.Log.Level})
	defer closer.Close()

	// 1. Open Source DB (ReadOnly)
	srcDB, err := gorm.Open(sqlite.Open("file:"+*src+"?mode=ro"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to open legacy file: %v", err)
	}
	defer db.Close(srcDB)

	// 2. Open target cache
	dst, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(dst)

	rep, err := legacy.Migrate(context.Background(), srcDB, store.New(dst), lg)
	if err != nil {
		lg.Error("migration failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Migrated %d of %d rows into %s (%d duplicates collapsed, %d skipped)\n",
		rep.Written, rep.Read, cfg.Database.Path, rep.Collapsed, rep.Skipped)
}
