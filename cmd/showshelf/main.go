package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pokerjest/showshelf/internal/app"
	"github.com/pokerjest/showshelf/internal/config"
	"github.com/pokerjest/showshelf/internal/logger"
	"github.com/pokerjest/showshelf/internal/model"
)

const usage = `usage: showshelf [-config dir] [-workers n] [-no-ratings] [-v] <command> [args]

commands:
  add [-category c] [file]      fast-add every line of file (or stdin)
  validate [-category c] line   pick a match interactively and add it
  imdb [-category c] ref        add by IMDb id or URL
  fetch [-missing] [title...]   refresh poster and critic score
  list                          print the library
  delete title                  remove a show
  category title category       move a show to another section
  link title url                set (or clear with "") the personal link
  generate [-out path]          write the HTML page
  build                         fetch missing, then generate
  publish                       generate, then upload to the bucket
`

type cli struct {
	app    *app.App
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("showshelf", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configDir := fs.String("config", ".", "directory holding config.yaml")
	workers := fs.Int("workers", 0, "concurrent lookups (1-16)")
	noRatings := fs.Bool("no-ratings", false, "skip OMDb critic scores")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *workers != 0 {
		cfg.Batch.Workers = config.ClampWorkers(*workers)
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, closer := logger.New(logger.Options{Name: "showshelf", Level: level, File: cfg.Log.File})
	defer closer.Close()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()
	if *noRatings {
		a.Options.FetchRatings = false
	}

	c := &cli{app: a, stdin: os.Stdin, stdout: os.Stdout}
	if err := c.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		return 1
	}
	return 0
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "add":
		return c.add(ctx, args)
	case "validate":
		return c.validate(ctx, args)
	case "imdb":
		return c.imdb(ctx, args)
	case "fetch":
		return c.fetch(ctx, args)
	case "list":
		return c.list(ctx)
	case "delete":
		return c.delete(ctx, args)
	case "category":
		return c.category(ctx, args)
	case "link":
		return c.link(ctx, args)
	case "generate":
		return c.generate(ctx, args)
	case "build":
		return c.build(ctx)
	case "publish":
		return c.publish(ctx)
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

// describe turns the error taxonomy into a short user-facing message.
func describe(err error) string {
	var perr *model.ProviderError
	switch {
	case errors.Is(err, model.ErrConfig):
		return "configuration: " + err.Error()
	case errors.Is(err, model.ErrNotFound):
		return "not found: " + err.Error()
	case errors.As(err, &perr):
		return strings.ToUpper(perr.Provider) + " request failed: " + err.Error()
	}
	return err.Error()
}
