package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/batch"
	"github.com/pokerjest/showshelf/internal/event"
	"github.com/pokerjest/showshelf/internal/matcher"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/parser"
	"github.com/pokerjest/showshelf/internal/poster"
	"github.com/pokerjest/showshelf/internal/tmdb"
)

// ErrInvalidIMDb means the input held neither an IMDb id nor an imdb.com title URL.
var ErrInvalidIMDb = errors.New("not an IMDb id or URL")

type Store interface {
	Upsert(ctx context.Context, rec *model.ShowRecord) (*model.ShowRecord, error)
	Get(ctx context.Context, key string) (*model.ShowRecord, error)
	List(ctx context.Context) ([]model.ShowRecord, error)
	ListMissing(ctx context.Context, withScore bool) ([]model.ShowRecord, error)
	UpdateFields(ctx context.Context, key string, p model.Patch) (int64, error)
	Delete(ctx context.Context, key string) (int64, error)
}

type Metadata interface {
	Details(ctx context.Context, media model.MediaType, id int) (*tmdb.Details, error)
	FindByIMDb(ctx context.Context, imdbID string) (*tmdb.FindResult, error)
	Poster(ctx context.Context, posterPath string) ([]byte, error)
}

type Ratings interface {
	CriticScore(ctx context.Context, title string, year *int, media model.MediaType) (string, error)
}

type Matcher interface {
	Match(ctx context.Context, q matcher.Query) ([]matcher.Candidate, error)
}

type PosterSaver interface {
	Save(title, dataURI string) (string, error)
}

type Options struct {
	FetchRatings bool
}

type Deps struct {
	Store     Store
	Metadata  Metadata
	Ratings   Ratings
	Matcher   Matcher
	Posters   PosterSaver
	Processor *batch.Processor
	Bus       event.Bus
	Log       hclog.Logger
}

// Library orchestrates lookups, enrichment and cache writes for curated shows.
type Library struct {
	store   Store
	meta    Metadata
	ratings Ratings
	match   Matcher
	posters PosterSaver
	proc    *batch.Processor
	bus     event.Bus
	log     hclog.Logger
}

func NewLibrary(d Deps) *Library {
	l := &Library{
		store:   d.Store,
		meta:    d.Metadata,
		ratings: d.Ratings,
		match:   d.Matcher,
		posters: d.Posters,
		proc:    d.Processor,
		bus:     d.Bus,
		log:     d.Log,
	}
	if l.log == nil {
		l.log = hclog.NewNullLogger()
	}
	if l.bus == nil {
		l.bus = event.Nop{}
	}
	if l.proc == nil {
		l.proc = batch.NewProcessor(0, l.log.Named("batch"))
	}
	return l
}

func never() bool { return false }

func (l *Library) changed(key string) {
	l.bus.Publish(event.EventLibraryChanged, key)
}

// Candidates runs the smart matcher for manual picking.
func (l *Library) Candidates(ctx context.Context, item parser.Item) ([]matcher.Candidate, error) {
	cands, err := l.match.Match(ctx, matcher.Query{MediaType: item.MediaType, Title: item.Title, Year: item.Year})
	if err != nil {
		return nil, err
	}
	return matcher.Limit(cands, matcher.DefaultLimit), nil
}

// AddByID enriches the picked provider id and stores it under the item's title.
func (l *Library) AddByID(ctx context.Context, item parser.Item, id int, cat model.Category, opts Options) (*model.ShowRecord, error) {
	rec, err := l.addByID(ctx, item, id, cat, opts, never)
	if err != nil {
		return nil, err
	}
	l.changed(rec.TitleKey)
	return rec, nil
}

func (l *Library) addByID(ctx context.Context, item parser.Item, id int, cat model.Category, opts Options, stop func() bool) (*model.ShowRecord, error) {
	if strings.TrimSpace(item.Title) == "" {
		return nil, fmt.Errorf("empty title")
	}
	if !item.MediaType.Valid() {
		item.MediaType = model.MediaTV
	}

	d, err := l.meta.Details(ctx, item.MediaType, id)
	if err != nil {
		return nil, err
	}
	if stop() {
		return nil, model.ErrCancelled
	}

	rec := &model.ShowRecord{
		Title:      item.Title,
		Year:       item.Year,
		MediaType:  item.MediaType,
		TMDBID:     id,
		IMDbID:     d.ExternalIDs.IMDbID,
		FirstAired: d.Released(),
		Status:     d.Status,
		Seasons:    d.NumberOfSeasons,
		Episodes:   d.NumberOfEpisodes,
		Synopsis:   d.Overview,
		Category:   cat,
	}
	if rec.Year == nil {
		rec.Year = tmdb.YearOf(rec.FirstAired)
	}
	if item.MediaType == model.MediaTV {
		rec.Network = d.FirstNetwork()
	}
	rec.SetGenres(d.GenreNames())

	if rec.Poster, err = l.fetchPoster(ctx, rec.Title, d.PosterPath); err != nil {
		return nil, err
	}
	if opts.FetchRatings {
		if rec.CriticScore, err = l.ratings.CriticScore(ctx, rec.Title, rec.Year, rec.MediaType); err != nil {
			return nil, err
		}
	}
	if stop() {
		return nil, model.ErrCancelled
	}

	saved, err := l.store.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}
	l.log.Info("saved", "title", saved.Title, "tmdb_id", id)
	return saved, nil
}

// fetchPoster returns the poster as a data URI and keeps a file copy on disk.
func (l *Library) fetchPoster(ctx context.Context, title, posterPath string) (string, error) {
	if posterPath == "" {
		return "", nil
	}
	data, err := l.meta.Poster(ctx, posterPath)
	if err != nil {
		return "", err
	}
	uri := poster.EncodeDataURI(data)
	if uri != "" && l.posters != nil {
		if path, err := l.posters.Save(title, uri); err != nil {
			l.log.Warn("failed to save poster file", "title", title, "error", err)
		} else {
			l.log.Debug("poster saved", "path", path)
		}
	}
	return uri, nil
}

// FastAdd takes the matcher's first candidate without asking.
func (l *Library) FastAdd(ctx context.Context, item parser.Item, cat model.Category, opts Options, stop func() bool) (*model.ShowRecord, error) {
	if stop == nil {
		stop = never
	}
	cands, err := l.match.Match(ctx, matcher.Query{MediaType: item.MediaType, Title: item.Title, Year: item.Year})
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%s: %w", item.Title, model.ErrNotFound)
	}
	if stop() {
		return nil, model.ErrCancelled
	}
	return l.addByID(ctx, item, cands[0].ID, cat, opts, stop)
}

// AddByIMDb resolves an IMDb id or URL and stores the title under the provider's name.
func (l *Library) AddByIMDb(ctx context.Context, ref string, cat model.Category, opts Options) (*model.ShowRecord, error) {
	imdbID, ok := parser.ExtractIMDbID(ref)
	if !ok {
		return nil, ErrInvalidIMDb
	}
	found, err := l.meta.FindByIMDb(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", imdbID, model.ErrNotFound)
	}

	d, err := l.meta.Details(ctx, found.MediaType, found.ID)
	if err != nil {
		return nil, err
	}
	title := d.DisplayName()
	if title == "" {
		title = "Unknown"
	}
	item := parser.Item{Title: title, Year: tmdb.YearOf(d.Released()), MediaType: found.MediaType}

	rec, err := l.addByID(ctx, item, found.ID, cat, opts, never)
	if err != nil {
		return nil, err
	}
	l.changed(rec.TitleKey)
	return rec, nil
}

// Refresh re-fetches poster and critic score for a cached record.
// An empty new score keeps the old one; a missing poster keeps the old poster.
func (l *Library) Refresh(ctx context.Context, key string, opts Options, stop func() bool) (*model.ShowRecord, error) {
	if stop == nil {
		stop = never
	}
	rec, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var patch model.Patch
	id := rec.TMDBID
	if id == 0 {
		// Migrated rows may lack the provider id.
		cands, err := l.match.Match(ctx, matcher.Query{MediaType: rec.MediaType, Title: rec.Title, Year: rec.Year})
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			return nil, fmt.Errorf("%s: %w", rec.Title, model.ErrNotFound)
		}
		id = cands[0].ID
		patch.TMDBID = &id
	}

	d, err := l.meta.Details(ctx, rec.MediaType, id)
	if err != nil {
		return nil, err
	}
	if stop() {
		return nil, model.ErrCancelled
	}

	uri, err := l.fetchPoster(ctx, rec.Title, d.PosterPath)
	if err != nil {
		return nil, err
	}
	score := ""
	if opts.FetchRatings {
		if score, err = l.ratings.CriticScore(ctx, rec.Title, rec.Year, rec.MediaType); err != nil {
			return nil, err
		}
	}
	if stop() {
		return nil, model.ErrCancelled
	}

	if uri == "" {
		uri = rec.Poster
	}
	if score == "" {
		score = rec.CriticScore
	}
	patch.Poster, patch.CriticScore = &uri, &score
	n, err := l.store.UpdateFields(ctx, rec.TitleKey, patch)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Deleted while we were fetching.
		return nil, fmt.Errorf("%s: %w", rec.Title, model.ErrNotFound)
	}
	rec.TMDBID = id
	rec.Poster = uri
	rec.CriticScore = score
	l.log.Info("refreshed", "title", rec.Title)
	return rec, nil
}

// AddBatch fast-adds every item on the worker pool.
func (l *Library) AddBatch(ctx context.Context, items []parser.Item, cat model.Category, opts Options) *batch.Batch {
	tasks := make([]batch.Task, len(items))
	for i := range items {
		item := items[i]
		tasks[i] = batch.Task{Index: i, Item: &item}
	}
	return l.proc.Start(ctx, tasks, batch.ExecutorFunc(func(ctx context.Context, t batch.Task, stop func() bool) error {
		rec, err := l.FastAdd(ctx, *t.Item, cat, opts, stop)
		if err == nil {
			l.changed(rec.TitleKey)
		}
		return err
	}))
}

// RefreshBatch refreshes the given cache keys on the worker pool.
func (l *Library) RefreshBatch(ctx context.Context, keys []string, opts Options) *batch.Batch {
	tasks := make([]batch.Task, len(keys))
	for i, k := range keys {
		tasks[i] = batch.Task{Index: i, Key: k}
	}
	return l.proc.Start(ctx, tasks, batch.ExecutorFunc(func(ctx context.Context, t batch.Task, stop func() bool) error {
		rec, err := l.Refresh(ctx, t.Key, opts, stop)
		if err == nil {
			l.changed(rec.TitleKey)
		}
		return err
	}))
}

// MissingKeys lists records still lacking a poster, or a critic score when
// opts.FetchRatings says a refresh could fill one.
func (l *Library) MissingKeys(ctx context.Context, opts Options) ([]string, error) {
	recs, err := l.store.ListMissing(ctx, opts.FetchRatings)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, r.TitleKey)
	}
	return keys, nil
}

func (l *Library) SetCategory(ctx context.Context, key string, cat model.Category) error {
	if !cat.Valid() {
		return fmt.Errorf("unknown category %q", cat)
	}
	return l.update(ctx, key, model.Patch{Category: &cat})
}

// SetLink stores a personal URL; an empty link clears it.
func (l *Library) SetLink(ctx context.Context, key, link string) error {
	link = strings.TrimSpace(link)
	return l.update(ctx, key, model.Patch{PersonalLink: &link})
}

func (l *Library) update(ctx context.Context, key string, p model.Patch) error {
	n, err := l.store.UpdateFields(ctx, key, p)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, model.ErrNotFound)
	}
	l.changed(model.NormalizeTitle(key))
	return nil
}

func (l *Library) Delete(ctx context.Context, key string) error {
	n, err := l.store.Delete(ctx, key)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, model.ErrNotFound)
	}
	l.changed(model.NormalizeTitle(key))
	return nil
}

func (l *Library) List(ctx context.Context) ([]model.ShowRecord, error) {
	return l.store.List(ctx)
}

func (l *Library) Get(ctx context.Context, key string) (*model.ShowRecord, error) {
	return l.store.Get(ctx, key)
}
