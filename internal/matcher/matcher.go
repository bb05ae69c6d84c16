package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/tmdb"
)

// DefaultLimit caps the candidate list offered for manual picking.
const DefaultLimit = 10

// Searcher is the provider search call the strategies run against.
type Searcher interface {
	Search(ctx context.Context, media model.MediaType, title string, year *int) ([]tmdb.SearchResult, error)
}

type Query struct {
	MediaType model.MediaType
	Title     string
	Year      *int
}

type Candidate struct {
	ID         int
	Name       string
	Year       *int
	Overview   string
	PosterPath string
	Strategy   string
}

// Label renders "Name (Year)".
func (c Candidate) Label() string {
	if c.Year == nil {
		return c.Name
	}
	return fmt.Sprintf("%s (%d)", c.Name, *c.Year)
}

// Strategy derives one search attempt from the query. ok=false means it does not apply.
type Strategy struct {
	Name  string
	Build func(q Query, aliases map[string]string) (title string, year *int, ok bool)
}

// DefaultAliases maps alternate renderings to the term the provider knows.
func DefaultAliases() map[string]string {
	return map[string]string{
		"dept. q":                       "department q",
		"true detective: night country": "true detective",
	}
}

// ParseAliases reads "from=to" pairs. Malformed entries are skipped.
func ParseAliases(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		from, to, ok := strings.Cut(p, "=")
		from = strings.ToLower(strings.TrimSpace(from))
		to = strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			continue
		}
		out[from] = to
	}
	return out
}

// Strategies is the fixed fallback chain: exact, alias, colon, no-year.
func Strategies() []Strategy {
	return []Strategy{
		{Name: "exact", Build: func(q Query, _ map[string]string) (string, *int, bool) {
			return q.Title, q.Year, true
		}},
		{Name: "alias", Build: func(q Query, aliases map[string]string) (string, *int, bool) {
			term, ok := aliases[strings.ToLower(q.Title)]
			return term, q.Year, ok
		}},
		{Name: "colon", Build: func(q Query, _ map[string]string) (string, *int, bool) {
			left, _, found := strings.Cut(q.Title, ":")
			left = strings.TrimSpace(left)
			return left, q.Year, found && left != ""
		}},
		{Name: "no-year", Build: func(q Query, _ map[string]string) (string, *int, bool) {
			// Without a year this is the exact strategy again.
			return q.Title, nil, q.Year != nil
		}},
	}
}

type Matcher struct {
	search     Searcher
	aliases    map[string]string
	strategies []Strategy
	log        hclog.Logger
}

// New builds a matcher over the default aliases plus any extra ones.
func New(search Searcher, extra map[string]string, log hclog.Logger) *Matcher {
	aliases := DefaultAliases()
	for k, v := range extra {
		aliases[strings.ToLower(strings.TrimSpace(k))] = v
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Matcher{search: search, aliases: aliases, strategies: Strategies(), log: log}
}

// Match runs the strategies in order and returns the first non-empty result set.
// A provider error stops the chain.
func (m *Matcher) Match(ctx context.Context, q Query) ([]Candidate, error) {
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		return nil, nil
	}
	if !q.MediaType.Valid() {
		q.MediaType = model.MediaTV
	}

	for _, s := range m.strategies {
		title, year, ok := s.Build(q, m.aliases)
		if !ok {
			continue
		}
		results, err := m.search.Search(ctx, q.MediaType, title, year)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			m.log.Debug("strategy found nothing", "strategy", s.Name, "title", title)
			continue
		}
		m.log.Debug("strategy matched", "strategy", s.Name, "title", title, "results", len(results))
		return toCandidates(results, s.Name), nil
	}
	return nil, nil
}

// Limit truncates candidates to n (DefaultLimit when n <= 0).
func Limit(cands []Candidate, n int) []Candidate {
	if n <= 0 {
		n = DefaultLimit
	}
	if len(cands) > n {
		return cands[:n]
	}
	return cands
}

func toCandidates(results []tmdb.SearchResult, strategy string) []Candidate {
	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{
			ID:         r.ID,
			Name:       r.DisplayName(),
			Year:       r.Year(),
			Overview:   r.Overview,
			PosterPath: r.PosterPath,
			Strategy:   strategy,
		})
	}
	return out
}
