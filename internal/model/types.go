package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MediaType is the provider media kind of a curated title
type MediaType string

const (
	MediaTV    MediaType = "tv"
	MediaMovie MediaType = "movie"
)

func (m MediaType) Valid() bool {
	return m == MediaTV || m == MediaMovie
}

// ParseMediaType accepts "tv" or "movie" in any case.
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaTV:
		return MediaTV, true
	case MediaMovie:
		return MediaMovie, true
	}
	return "", false
}

// Category is one of the fixed buckets the rendered page groups shows by
type Category string

const (
	CategorySuggested Category = "Suggestions"
	CategoryAlsoLiked Category = "Also shows I like (additional options)"
	CategoryPopular   Category = "Popular with others"
)

var categorySlugs = map[string]Category{
	"suggested": CategorySuggested,
	"also":      CategoryAlsoLiked,
	"popular":   CategoryPopular,
}

// Categories returns the buckets in display order. The first one is the default.
func Categories() []Category {
	return []Category{CategorySuggested, CategoryAlsoLiked, CategoryPopular}
}

func DefaultCategory() Category {
	return CategorySuggested
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory resolves a display name, a 1-based index or a short slug.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCategory(), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		cats := Categories()
		if n >= 1 && n <= len(cats) {
			return cats[n-1], nil
		}
		return "", fmt.Errorf("category index %d out of range 1-%d", n, len(cats))
	}
	if c, ok := categorySlugs[strings.ToLower(s)]; ok {
		return c, nil
	}
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// NormalizeTitle builds the uniqueness key: trimmed, lowercased, whitespace collapsed.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// ShowRecord 代表一个收藏的剧集或电影
type ShowRecord struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Title         string    `json:"title" gorm:"not null"`
	TitleKey      string    `json:"title_key" gorm:"uniqueIndex;not null"`
	Year          *int      `json:"year"`
	MediaType     MediaType `json:"media_type" gorm:"not null;default:tv"`
	TMDBID        int       `json:"tmdb_id" gorm:"column:tmdb_id"`
	IMDbID        string    `json:"imdb_id" gorm:"column:imdb_id"`
	Network       string    `json:"network"`
	Genres        string    `json:"genres"` // comma separated, provider order
	FirstAired    string    `json:"first_aired"`
	Status        string    `json:"status"`
	Seasons       *int      `json:"seasons"`
	Episodes      *int      `json:"episodes"`
	Synopsis      string    `json:"synopsis"`
	Poster        string    `json:"poster,omitempty"` // data: URI or file path
	CriticScore   string    `json:"critic_score"`
	AudienceScore string    `json:"audience_score"`
	Category      Category  `json:"category"`
	PersonalLink  string    `json:"personal_link"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ShowRecord) TableName() string {
	return "shows"
}

const genreSep = ", "

func (r *ShowRecord) GenreList() []string {
	if strings.TrimSpace(r.Genres) == "" {
		return nil
	}
	parts := strings.Split(r.Genres, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *ShowRecord) SetGenres(genres []string) {
	r.Genres = strings.Join(genres, genreSep)
}

func (r *ShowRecord) HasPoster() bool {
	return r.Poster != ""
}

// Label renders "Title (Year)" or just the title when the year is unknown.
func (r *ShowRecord) Label() string {
	if r.Year == nil || *r.Year == 0 {
		return r.Title
	}
	return fmt.Sprintf("%s (%d)", r.Title, *r.Year)
}

// ApplyDefaults fills the invariants every stored record must satisfy.
func (r *ShowRecord) ApplyDefaults() {
	r.Title = strings.TrimSpace(r.Title)
	r.TitleKey = NormalizeTitle(r.Title)
	if !r.MediaType.Valid() {
		r.MediaType = MediaTV
	}
	if !r.Category.Valid() {
		r.Category = DefaultCategory()
	}
}

// Patch carries the subset of fields an in-place edit may touch. Nil means untouched.
type Patch struct {
	TMDBID       *int
	Poster       *string
	CriticScore  *string
	Category     *Category
	PersonalLink *string
}

func (p Patch) Empty() bool {
	return p.TMDBID == nil && p.Poster == nil && p.CriticScore == nil && p.Category == nil && p.PersonalLink == nil
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int {
	return &v
}
