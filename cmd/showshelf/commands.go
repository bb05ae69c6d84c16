package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pokerjest/showshelf/internal/batch"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/parser"
)

func categoryFlag(fs *flag.FlagSet) *string {
	return fs.String("category", string(model.DefaultCategory()), "section the show is filed under")
}

func (c *cli) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	cat := categoryFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	category, err := model.ParseCategory(*cat)
	if err != nil {
		return err
	}

	var in io.Reader = c.stdin
	if name := fs.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	items := parser.ParseLines(string(data))
	if len(items) == 0 {
		return errors.New("no titles found")
	}

	// The batch ignores ctx cancellation; Ctrl-C goes through Cancel so in-flight lookups finish.
	b := c.app.Library.AddBatch(ctx, items, category, c.app.Options)
	return c.follow(b)
}

// follow prints progress until the batch ends. The first Ctrl-C cancels cooperatively.
func (c *cli) follow(b *batch.Batch) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	go func() {
		select {
		case <-sig:
			fmt.Fprintln(c.stdout, "cancelling; waiting for running lookups...")
			b.Cancel()
		case <-b.Done():
		}
	}()

	for res := range b.Results() {
		fmt.Fprintf(c.stdout, "[%d/%d] %s\n", res.Completed, res.Total, res)
	}
	sum := b.Wait()
	fmt.Fprintf(c.stdout, "done: %d added, %d not found, %d failed, %d cancelled\n",
		sum.Succeeded, sum.NotFound, sum.Failed, sum.Cancelled)
	if sum.ConfigErr != nil {
		return sum.ConfigErr
	}
	return nil
}

func (c *cli) validate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	cat := categoryFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	category, err := model.ParseCategory(*cat)
	if err != nil {
		return err
	}
	item, ok := parser.ParseLine(strings.Join(fs.Args(), " "))
	if !ok {
		return errors.New("validate needs a title")
	}

	cands, err := c.app.Library.Candidates(ctx, item)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		return fmt.Errorf("%s: %w", item, model.ErrNotFound)
	}
	for i, cand := range cands {
		fmt.Fprintf(c.stdout, "%2d) %s  [%s]\n", i+1, cand.Label(), cand.Strategy)
	}
	fmt.Fprint(c.stdout, "pick a number (empty to skip): ")

	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(cands) {
		return fmt.Errorf("invalid choice %q", line)
	}

	rec, err := c.app.Library.AddByID(ctx, item, cands[n-1].ID, category, c.app.Options)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "added %s\n", rec.Title)
	return nil
}

func (c *cli) imdb(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("imdb", flag.ContinueOnError)
	cat := categoryFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	category, err := model.ParseCategory(*cat)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("imdb needs exactly one id or URL")
	}
	rec, err := c.app.Library.AddByIMDb(ctx, fs.Arg(0), category, c.app.Options)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "added %s\n", rec.Title)
	return nil
}

func (c *cli) fetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	missing := fs.Bool("missing", false, "refresh every record without a poster (or critic score when ratings are enabled)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.refresh(ctx, fs.Args(), *missing)
}

func (c *cli) refresh(ctx context.Context, keys []string, missing bool) error {
	if missing {
		found, err := c.app.Library.MissingKeys(ctx, c.app.Options)
		if err != nil {
			return err
		}
		keys = found
	}
	if len(keys) == 0 {
		fmt.Fprintln(c.stdout, "nothing to refresh")
		return nil
	}
	return c.follow(c.app.Library.RefreshBatch(ctx, keys, c.app.Options))
}

func (c *cli) list(ctx context.Context) error {
	shows, err := c.app.Library.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range shows {
		year := ""
		if s.Year != nil {
			year = fmt.Sprintf(" (%d)", *s.Year)
		}
		var missing []string
		if s.Poster == "" {
			missing = append(missing, "poster")
		}
		if s.CriticScore == "" {
			missing = append(missing, "score")
		}
		note := ""
		if len(missing) > 0 {
			note = "  missing: " + strings.Join(missing, ", ")
		}
		fmt.Fprintf(c.stdout, "%s%s  [%s]%s\n", s.Title, year, s.Category, note)
	}
	fmt.Fprintf(c.stdout, "%d shows\n", len(shows))
	return nil
}

func (c *cli) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("delete needs a title")
	}
	if err := c.app.Library.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "deleted %s\n", args[0])
	return nil
}

func (c *cli) category(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("category needs a title and a category")
	}
	cat, err := model.ParseCategory(args[1])
	if err != nil {
		return err
	}
	return c.app.Library.SetCategory(ctx, args[0], cat)
}

func (c *cli) link(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("link needs a title and a URL")
	}
	return c.app.Library.SetLink(ctx, args[0], args[1])
}

func (c *cli) generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	out := fs.String("out", "", "output file (remembered for next time)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := c.app.Pages.Generate(ctx, *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "wrote %s\n", path)
	return nil
}

func (c *cli) build(ctx context.Context) error {
	if err := c.refresh(ctx, nil, true); err != nil {
		return err
	}
	return c.generate(ctx, nil)
}

func (c *cli) publish(ctx context.Context) error {
	if !c.app.Publisher.Configured() {
		return errors.New("publish target is not configured (publish.endpoint, bucket, access_key, secret_key)")
	}
	path, err := c.app.Pages.Generate(ctx, "")
	if err != nil {
		return err
	}
	loc, err := c.app.Publisher.Upload(ctx, c.app.Fs, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "published %s\n", loc)
	return nil
}
