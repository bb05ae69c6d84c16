package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pokerjest/showshelf/internal/model"
)

const (
	DefaultBaseURL = "https://www.omdbapi.com/"
	// RottenTomatoes is the Source value carrying the critic score.
	RottenTomatoes = "Rotten Tomatoes"

	requestTimeout = 8 * time.Second
)

type Config struct {
	APIKey    string
	BaseURL   string
	Proxy     string
	UserAgent string
}

type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

func NewClient(cfg Config) *Client {
	c := resty.New()
	c.SetTimeout(requestTimeout)
	if cfg.Proxy != "" {
		c.SetProxy(cfg.Proxy)
	}
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}
	c.SetHeader("Accept", "application/json")

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{client: c, baseURL: base, apiKey: strings.TrimSpace(cfg.APIKey)}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type titleResponse struct {
	Response string   `json:"Response"`
	Error    string   `json:"Error"`
	Ratings  []Rating `json:"Ratings"`
}

// CriticScore looks up the Rotten Tomatoes value for a title, e.g. "87%".
// An empty string means no score; an unconfigured client returns "" without any request.
func (c *Client) CriticScore(ctx context.Context, title string, year *int, media model.MediaType) (string, error) {
	if !c.Configured() {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	kind := "series"
	if media == model.MediaMovie {
		kind = "movie"
	}
	params := map[string]string{
		"t":      title,
		"type":   kind,
		"apikey": c.apiKey,
	}
	if year != nil && *year > 0 {
		params["y"] = strconv.Itoa(*year)
	}

	resp, err := c.client.R().SetContext(ctx).SetQueryParams(params).Get(c.baseURL)
	if err != nil {
		return "", &model.ProviderError{Provider: "omdb", Op: "title", Err: err}
	}
	if resp.IsError() {
		return "", &model.ProviderError{Provider: "omdb", Op: "title", Status: resp.StatusCode(), Err: errors.New(resp.Status())}
	}

	var result titleResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &model.ProviderError{Provider: "omdb", Op: "title", Err: fmt.Errorf("decode: %w", err)}
	}
	if result.Response != "True" {
		return "", nil
	}
	for _, r := range result.Ratings {
		if r.Source == RottenTomatoes {
			return r.Value, nil
		}
	}
	return "", nil
}
