package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pokerjest/showshelf/internal/model"
)

const (
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	DefaultUserAgent = "showshelf/1.2"

	searchTimeout  = 15 * time.Second
	detailsTimeout = 20 * time.Second
	findTimeout    = 12 * time.Second
	configTimeout  = 20 * time.Second
	posterTimeout  = 25 * time.Second
)

type Config struct {
	APIKey    string
	Token     string // v4 read access token, preferred over APIKey
	BaseURL   string
	Proxy     string
	UserAgent string
}

type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	token   string

	mu     sync.Mutex
	images *ImageConfig
}

func NewClient(cfg Config) *Client {
	c := resty.New()
	if cfg.Proxy != "" {
		c.SetProxy(cfg.Proxy)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	c.SetHeader("User-Agent", ua)
	c.SetHeader("Accept", "application/json")

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		client:  c,
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		token:   strings.TrimSpace(cfg.Token),
	}
}

// Configured reports whether any credential is available.
func (c *Client) Configured() bool {
	return c.token != "" || c.apiKey != ""
}

type SearchResult struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`  // tv
	Title        string `json:"title"` // movie
	FirstAirDate string `json:"first_air_date"`
	ReleaseDate  string `json:"release_date"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
}

// DisplayName returns the tv name or the movie title.
func (r SearchResult) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Title
}

// Year is parsed from the air or release date.
func (r SearchResult) Year() *int {
	if y := YearOf(r.FirstAirDate); y != nil {
		return y
	}
	return YearOf(r.ReleaseDate)
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Network struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ExternalIDs struct {
	IMDbID string `json:"imdb_id"`
}

type Details struct {
	ID               int         `json:"id"`
	Name             string      `json:"name"`
	Title            string      `json:"title"`
	FirstAirDate     string      `json:"first_air_date"`
	ReleaseDate      string      `json:"release_date"`
	Status           string      `json:"status"`
	NumberOfSeasons  *int        `json:"number_of_seasons"`
	NumberOfEpisodes *int        `json:"number_of_episodes"`
	Overview         string      `json:"overview"`
	PosterPath       string      `json:"poster_path"`
	Genres           []Genre     `json:"genres"`
	Networks         []Network   `json:"networks"`
	ExternalIDs      ExternalIDs `json:"external_ids"`
}

func (d *Details) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Title
}

// Released is the first four characters of the air or release date.
func (d *Details) Released() string {
	date := d.FirstAirDate
	if date == "" {
		date = d.ReleaseDate
	}
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

func (d *Details) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}

// FirstNetwork is only meaningful for tv.
func (d *Details) FirstNetwork() string {
	if len(d.Networks) == 0 {
		return ""
	}
	return d.Networks[0].Name
}

type FindResult struct {
	MediaType model.MediaType
	ID        int
}

type findResponse struct {
	TVResults    []SearchResult `json:"tv_results"`
	MovieResults []SearchResult `json:"movie_results"`
}

type ImageConfig struct {
	BaseURL    string
	PosterSize string
}

type configurationResponse struct {
	Images struct {
		SecureBaseURL string   `json:"secure_base_url"`
		PosterSizes   []string `json:"poster_sizes"`
	} `json:"images"`
}

// YearOf parses the leading YYYY of a provider date.
func YearOf(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("tmdb: set TMDB_API_KEY or API_TMDB_TOKEN: %w", model.ErrConfig)
	}
	r := c.client.R().SetContext(ctx)
	if c.token != "" {
		r.SetAuthToken(c.token)
	} else {
		r.SetQueryParam("api_key", c.apiKey)
	}
	return r, nil
}

func (c *Client) get(ctx context.Context, op, path string, params map[string]string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.SetQueryParams(params).Get(c.baseURL + path)
	if err != nil {
		return &model.ProviderError{Provider: "tmdb", Op: op, Err: err}
	}
	if resp.IsError() {
		return &model.ProviderError{Provider: "tmdb", Op: op, Status: resp.StatusCode(), Err: errors.New(resp.Status())}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &model.ProviderError{Provider: "tmdb", Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// Search queries /search/{tv|movie}. year may be nil.
func (c *Client) Search(ctx context.Context, media model.MediaType, title string, year *int) ([]SearchResult, error) {
	params := map[string]string{"query": title}
	if year != nil && *year > 0 {
		if media == model.MediaMovie {
			params["year"] = strconv.Itoa(*year)
		} else {
			params["first_air_date_year"] = strconv.Itoa(*year)
		}
	}
	var result searchResponse
	if err := c.get(ctx, "search", "/search/"+string(mediaOrTV(media)), params, searchTimeout, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Details fetches a title with its external ids attached.
func (c *Client) Details(ctx context.Context, media model.MediaType, id int) (*Details, error) {
	var d Details
	path := fmt.Sprintf("/%s/%d", mediaOrTV(media), id)
	if err := c.get(ctx, "details", path, map[string]string{"append_to_response": "external_ids"}, detailsTimeout, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// FindByIMDb resolves an IMDb id. A nil result means the provider knows no such title.
func (c *Client) FindByIMDb(ctx context.Context, imdbID string) (*FindResult, error) {
	var result findResponse
	if err := c.get(ctx, "find", "/find/"+imdbID, map[string]string{"external_source": "imdb_id"}, findTimeout, &result); err != nil {
		return nil, err
	}
	if len(result.TVResults) > 0 {
		return &FindResult{MediaType: model.MediaTV, ID: result.TVResults[0].ID}, nil
	}
	if len(result.MovieResults) > 0 {
		return &FindResult{MediaType: model.MediaMovie, ID: result.MovieResults[0].ID}, nil
	}
	return nil, nil
}

// ImageConfig returns the poster base URL and size, cached after the first success.
func (c *Client) ImageConfig(ctx context.Context) (*ImageConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.images != nil {
		return c.images, nil
	}

	var result configurationResponse
	if err := c.get(ctx, "configuration", "/configuration", nil, configTimeout, &result); err != nil {
		return nil, err
	}
	base := result.Images.SecureBaseURL
	if base == "" {
		base = "https://image.tmdb.org/t/p/"
	}
	c.images = &ImageConfig{BaseURL: base, PosterSize: pickPosterSize(result.Images.PosterSizes)}
	return c.images, nil
}

func pickPosterSize(sizes []string) string {
	for _, want := range []string{"w500", "w780"} {
		for _, s := range sizes {
			if s == want {
				return s
			}
		}
	}
	if len(sizes) > 0 {
		return sizes[len(sizes)-1]
	}
	return "original"
}

// Poster downloads the raw bytes of a poster path such as "/abc.jpg".
func (c *Client) Poster(ctx context.Context, posterPath string) ([]byte, error) {
	if posterPath == "" {
		return nil, nil
	}
	images, err := c.ImageConfig(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, posterTimeout)
	defer cancel()

	url := strings.TrimRight(images.BaseURL, "/") + "/" + images.PosterSize + posterPath
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &model.ProviderError{Provider: "tmdb", Op: "poster", Err: err}
	}
	if resp.IsError() {
		return nil, &model.ProviderError{Provider: "tmdb", Op: "poster", Status: resp.StatusCode(), Err: errors.New(resp.Status())}
	}
	return resp.Body(), nil
}

func mediaOrTV(m model.MediaType) model.MediaType {
	if m == model.MediaMovie {
		return m
	}
	return model.MediaTV
}
