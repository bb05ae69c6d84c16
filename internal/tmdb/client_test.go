package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pokerjest/showshelf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfiguredFailsWithoutIO(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	assert.False(t, c.Configured())

	_, err := c.Search(context.Background(), model.MediaTV, "Dark", nil)
	assert.ErrorIs(t, err, model.ErrConfig)
	_, err = c.Details(context.Background(), model.MediaTV, 1)
	assert.ErrorIs(t, err, model.ErrConfig)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSearch_BearerAndYearParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		switch r.URL.Path {
		case "/search/tv":
			assert.Equal(t, "2017", r.URL.Query().Get("first_air_date_year"))
			assert.Empty(t, r.URL.Query().Get("year"))
			_, _ = w.Write([]byte(`{"results":[{"id":70523,"name":"Dark","first_air_date":"2017-12-01"}]}`))
		case "/search/movie":
			assert.Equal(t, "1999", r.URL.Query().Get("year"))
			_, _ = w.Write([]byte(`{"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Token: "tok", APIKey: "ignored"})

	res, err := c.Search(context.Background(), model.MediaTV, "Dark", model.IntPtr(2017))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Dark", res[0].DisplayName())
	require.NotNil(t, res[0].Year())
	assert.Equal(t, 2017, *res[0].Year())

	res, err = c.Search(context.Background(), model.MediaMovie, "The Matrix", model.IntPtr(1999))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "The Matrix", res[0].DisplayName())
}

func TestSearch_APIKeyQueryAndHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Search(context.Background(), model.MediaTV, "Dark", nil)

	var perr *model.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "search", perr.Op)
}

func TestDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/1396", r.URL.Path)
		assert.Equal(t, "external_ids", r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(`{
			"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20","status":"Ended",
			"number_of_seasons":5,"number_of_episodes":62,"overview":"A chemist turns to crime.",
			"poster_path":"/bb.jpg",
			"genres":[{"id":18,"name":"Drama"},{"id":80,"name":"Crime"}],
			"networks":[{"id":174,"name":"AMC"},{"id":1,"name":"Other"}],
			"external_ids":{"imdb_id":"tt0903747"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	d, err := c.Details(context.Background(), model.MediaTV, 1396)
	require.NoError(t, err)

	assert.Equal(t, "Breaking Bad", d.DisplayName())
	assert.Equal(t, "2008", d.Released())
	assert.Equal(t, []string{"Drama", "Crime"}, d.GenreNames())
	assert.Equal(t, "AMC", d.FirstNetwork())
	assert.Equal(t, "tt0903747", d.ExternalIDs.IMDbID)
	require.NotNil(t, d.NumberOfSeasons)
	assert.Equal(t, 5, *d.NumberOfSeasons)
}

func TestFindByIMDb_PrefersTV(t *testing.T) {
	body := `{"tv_results":[{"id":42}],"movie_results":[{"id":7}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/find/tt0306414", r.URL.Path)
		assert.Equal(t, "imdb_id", r.URL.Query().Get("external_source"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	found, err := c.FindByIMDb(context.Background(), "tt0306414")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.MediaTV, found.MediaType)
	assert.Equal(t, 42, found.ID)

	body = `{"tv_results":[],"movie_results":[]}`
	found, err = c.FindByIMDb(context.Background(), "tt0306414")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPickPosterSize(t *testing.T) {
	assert.Equal(t, "w500", pickPosterSize([]string{"w92", "w500", "w780", "original"}))
	assert.Equal(t, "w780", pickPosterSize([]string{"w92", "w780", "original"}))
	assert.Equal(t, "w342", pickPosterSize([]string{"w92", "w342"}))
	assert.Equal(t, "original", pickPosterSize(nil))
}

func TestPoster_UsesCachedImageConfig(t *testing.T) {
	var configHits int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/configuration":
			atomic.AddInt32(&configHits, 1)
			_, _ = w.Write([]byte(`{"images":{"secure_base_url":"` + srv.URL + `/img/","poster_sizes":["w92","w500","original"]}}`))
		case "/img/w500/p.jpg":
			assert.Empty(t, r.URL.Query().Get("api_key"))
			_, _ = w.Write([]byte("JPEGDATA"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	for i := 0; i < 2; i++ {
		data, err := c.Poster(context.Background(), "/p.jpg")
		require.NoError(t, err)
		assert.Equal(t, "JPEGDATA", string(data))
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&configHits))

	data, err := c.Poster(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestYearOf(t *testing.T) {
	require.NotNil(t, YearOf("2003-10-31"))
	assert.Equal(t, 2003, *YearOf("2003-10-31"))
	assert.Nil(t, YearOf(""))
	assert.Nil(t, YearOf("abc"))
}
