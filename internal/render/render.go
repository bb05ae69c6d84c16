package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"regexp"
	"time"

	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/poster"
	"github.com/spf13/afero"
)

//go:embed templates/page.html
var templateFS embed.FS

var (
	pageTmpl = template.Must(template.ParseFS(templateFS, "templates/page.html"))
	hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

const DefaultTitle = "TV Show Suggestions"

type Theme struct {
	Brand string `json:"brand" mapstructure:"brand"`
	Card  string `json:"card" mapstructure:"card"`
	BG    string `json:"bg" mapstructure:"bg"`
}

func DefaultTheme() Theme {
	return Theme{Brand: "#11b3a4", Card: "#EAF7F4", BG: "#0e1e21"}
}

// Normalize replaces any color that is not a #rgb or #rrggbb value with its default.
func (t Theme) Normalize() Theme {
	def := DefaultTheme()
	if !hexColor.MatchString(t.Brand) {
		t.Brand = def.Brand
	}
	if !hexColor.MatchString(t.Card) {
		t.Card = def.Card
	}
	if !hexColor.MatchString(t.BG) {
		t.BG = def.BG
	}
	return t
}

type Options struct {
	Title string
	Theme Theme
	// Fs resolves posters stored as file paths. Nil leaves such posters out.
	Fs  afero.Fs
	Now func() time.Time
}

type showView struct {
	Title       string
	Year        int
	MediaType   model.MediaType
	Network     string
	Genres      string
	Status      string
	Seasons     int
	Episodes    int
	Synopsis    string
	CriticScore string
	Poster      template.URL
	Link        string
}

type groupView struct {
	Category model.Category
	Shows    []showView
}

type pageView struct {
	Title     string
	Theme     Theme
	Count     int
	Generated string
	Groups    []groupView
}

// Group buckets shows by category in display order, dropping empty buckets.
// Shows with an unknown category land in the default bucket.
func Group(shows []model.ShowRecord) map[model.Category][]model.ShowRecord {
	out := make(map[model.Category][]model.ShowRecord)
	for _, s := range shows {
		cat := s.Category
		if !cat.Valid() {
			cat = model.DefaultCategory()
		}
		out[cat] = append(out[cat], s)
	}
	return out
}

// Render writes one self-contained HTML document.
func Render(w io.Writer, shows []model.ShowRecord, opts Options) error {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	grouped := Group(shows)
	page := pageView{
		Title:     opts.Title,
		Theme:     opts.Theme.Normalize(),
		Count:     len(shows),
		Generated: now().Format("2006-01-02 15:04"),
	}
	for _, cat := range model.Categories() {
		recs := grouped[cat]
		if len(recs) == 0 {
			continue
		}
		g := groupView{Category: cat}
		for i := range recs {
			g.Shows = append(g.Shows, toView(&recs[i], opts.Fs))
		}
		page.Groups = append(page.Groups, g)
	}

	if err := pageTmpl.Execute(w, page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// WriteFile renders to path on fs, creating the parent directory.
func WriteFile(fs afero.Fs, path string, shows []model.ShowRecord, opts Options) error {
	var buf bytes.Buffer
	if err := Render(&buf, shows, opts); err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return afero.WriteFile(fs, path, buf.Bytes(), 0o644)
}

func toView(r *model.ShowRecord, fs afero.Fs) showView {
	v := showView{
		Title:       r.Title,
		MediaType:   r.MediaType,
		Network:     r.Network,
		Genres:      r.Genres,
		Status:      r.Status,
		Synopsis:    r.Synopsis,
		CriticScore: r.CriticScore,
		Link:        r.PersonalLink,
	}
	if r.Year != nil {
		v.Year = *r.Year
	}
	if r.Seasons != nil {
		v.Seasons = *r.Seasons
	}
	if r.Episodes != nil {
		v.Episodes = *r.Episodes
	}

	ref := r.Poster
	if fs != nil {
		ref = poster.Inline(fs, ref)
	} else if !poster.IsDataURI(ref) {
		ref = ""
	}
	// Data URIs come from our own encoder; mark them safe for src attributes.
	v.Poster = template.URL(ref)
	return v
}
