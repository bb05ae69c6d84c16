// Package legacy imports show tables written by earlier versions of the cache.
//
// Two layouts exist in the wild. Both store one row per show in a "shows" table;
// one keys rows by title_norm and stamps last_updated as epoch seconds, the other
// keys by title and stamps updated_at as an ISO-8601 string. Rows are re-keyed by
// model.NormalizeTitle, so titles that differed only in case or spacing collapse
// into one record and the most recently updated row wins.
package legacy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/model"
	"gorm.io/gorm"
)

const table = "shows"

type Upserter interface {
	Upsert(ctx context.Context, rec *model.ShowRecord) (*model.ShowRecord, error)
}

type row struct {
	Title         string
	Year          *int
	Type          *string
	TmdbID        *int
	ImdbID        *string
	Network       *string
	Genres        *string
	Release       *string
	Status        *string
	Seasons       *int
	Episodes      *int
	Description   *string
	PosterDataURI *string
	Tomato        *string
	Popcorn       *string
	Category      *string
	PersonalURL   *string
	LastUpdated   *int64  `gorm:"column:last_updated"`
	UpdatedText   *string `gorm:"column:updated_at"`
}

var columns = []string{
	"title", "year", "type", "tmdb_id", "imdb_id", "network", "genres", "release", "status",
	"seasons", "episodes", "description", "poster_data_uri", "tomato", "popcorn", "category",
	"personal_url", "last_updated", "updated_at",
}

// Report summarizes one migration run.
type Report struct {
	Read      int
	Written   int
	Collapsed int
	Skipped   int
}

// Migrate copies every legacy row from src into dst.
func Migrate(ctx context.Context, src *gorm.DB, dst Upserter, log hclog.Logger) (Report, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	var rep Report

	m := src.Migrator()
	if !m.HasTable(table) {
		return rep, fmt.Errorf("source has no %s table", table)
	}
	var present []string
	for _, col := range columns {
		if m.HasColumn(table, col) {
			// release is an SQL keyword
			present = append(present, `"`+col+`"`)
		}
	}

	var rows []row
	if err := src.WithContext(ctx).Table(table).Select(present).Scan(&rows).Error; err != nil {
		return rep, fmt.Errorf("read legacy rows: %w", err)
	}
	rep.Read = len(rows)

	latest := make(map[string]row)
	stamps := make(map[string]time.Time)
	for _, r := range rows {
		key := model.NormalizeTitle(r.Title)
		if key == "" {
			rep.Skipped++
			continue
		}
		ts := r.updated()
		if prev, ok := stamps[key]; ok {
			rep.Collapsed++
			if ts.Before(prev) {
				continue
			}
		}
		latest[key] = r
		stamps[key] = ts
	}

	keys := make([]string, 0, len(latest))
	for k := range latest {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		r := latest[k]
		if _, err := dst.Upsert(ctx, r.record()); err != nil {
			return rep, fmt.Errorf("write %q: %w", r.Title, err)
		}
		rep.Written++
	}
	log.Info("legacy migration finished", "read", rep.Read, "written", rep.Written,
		"collapsed", rep.Collapsed, "skipped", rep.Skipped)
	return rep, nil
}

func (r row) updated() time.Time {
	if r.LastUpdated != nil && *r.LastUpdated > 0 {
		return time.Unix(*r.LastUpdated, 0)
	}
	if r.UpdatedText != nil {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, strings.TrimSpace(*r.UpdatedText)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func (r row) record() *model.ShowRecord {
	rec := &model.ShowRecord{
		Title:         strings.TrimSpace(r.Title),
		Year:          r.Year,
		IMDbID:        str(r.ImdbID),
		Network:       str(r.Network),
		Genres:        str(r.Genres),
		FirstAired:    str(r.Release),
		Status:        str(r.Status),
		Seasons:       r.Seasons,
		Episodes:      r.Episodes,
		Synopsis:      str(r.Description),
		Poster:        str(r.PosterDataURI),
		CriticScore:   str(r.Tomato),
		AudienceScore: str(r.Popcorn),
		Category:      category(str(r.Category)),
		PersonalLink:  str(r.PersonalURL),
	}
	if r.TmdbID != nil {
		rec.TMDBID = *r.TmdbID
	}
	if mt, ok := model.ParseMediaType(str(r.Type)); ok {
		rec.MediaType = mt
	}
	return rec
}

// category maps old section names, which carried a personalized suffix, onto the fixed buckets.
func category(s string) model.Category {
	if c, err := model.ParseCategory(s); err == nil {
		return c
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, c := range model.Categories() {
		first := strings.ToLower(strings.Fields(string(c))[0])
		if strings.HasPrefix(lower, first) {
			return c
		}
	}
	return model.DefaultCategory()
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
