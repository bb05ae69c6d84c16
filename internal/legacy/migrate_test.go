package legacy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/pokerjest/showshelf/internal/db"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/pokerjest/showshelf/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openLegacy(t *testing.T, schema string, inserts ...string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "legacy.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })

	require.NoError(t, conn.Exec(schema).Error)
	for _, stmt := range inserts {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newTarget(t *testing.T) *store.Store {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	return store.New(conn)
}

const normSchema = `CREATE TABLE shows(
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  title_norm TEXT NOT NULL UNIQUE,
  year INTEGER,
  type TEXT DEFAULT 'tv',
  tmdb_id INTEGER,
  imdb_id TEXT,
  network TEXT,
  genres TEXT,
  release TEXT,
  status TEXT,
  seasons INTEGER,
  episodes INTEGER,
  description TEXT,
  poster_data_uri TEXT,
  tomato TEXT,
  popcorn TEXT,
  category TEXT DEFAULT 'Suggestions for Wayne & Sandra',
  personal_url TEXT,
  last_updated INTEGER
)`

const titleSchema = `CREATE TABLE shows (
  id INTEGER PRIMARY KEY,
  title TEXT UNIQUE,
  title_norm TEXT,
  year INTEGER,
  type TEXT,
  tmdb_id INTEGER,
  tomato TEXT,
  category TEXT,
  created_at TEXT,
  updated_at TEXT
)`

func TestMigrate_TitleNormVariant(t *testing.T) {
	src := openLegacy(t, normSchema,
		`INSERT INTO shows(title, title_norm, year, type, tmdb_id, network, genres, seasons, description, poster_data_uri, tomato, category, personal_url, last_updated)
		 VALUES ('Slow Horses', 'slow horses', 2022, 'tv', 95480, 'Apple TV+', 'Drama, Crime', 4, 'Spies.', 'data:image/png;base64,AAAA', '98%', 'Suggestions for Wayne & Sandra', 'https://example.com', 1700000000)`,
		`INSERT INTO shows(title, title_norm, type, tomato, category, last_updated)
		 VALUES ('Oppenheimer', 'oppenheimer', 'movie', '93%', 'Popular with others', 1700000100)`,
	)
	dst := newTarget(t)

	rep, err := Migrate(context.Background(), src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, Report{Read: 2, Written: 2}, rep)

	rec, err := dst.Get(context.Background(), "slow horses")
	require.NoError(t, err)
	assert.Equal(t, "Slow Horses", rec.Title)
	assert.Equal(t, 95480, rec.TMDBID)
	assert.Equal(t, model.CategorySuggested, rec.Category)
	assert.Equal(t, "data:image/png;base64,AAAA", rec.Poster)
	assert.Equal(t, "98%", rec.CriticScore)
	assert.Equal(t, "Spies.", rec.Synopsis)
	assert.Equal(t, "https://example.com", rec.PersonalLink)
	require.NotNil(t, rec.Seasons)
	assert.Equal(t, 4, *rec.Seasons)

	movie, err := dst.Get(context.Background(), "oppenheimer")
	require.NoError(t, err)
	assert.Equal(t, model.MediaMovie, movie.MediaType)
	assert.Equal(t, model.CategoryPopular, movie.Category)
}

func TestMigrate_TitleVariantCollapsesCaseDuplicates(t *testing.T) {
	src := openLegacy(t, titleSchema,
		`INSERT INTO shows(title, tomato, updated_at) VALUES ('The Bear', '90%', '2024-01-01T10:00:00Z')`,
		`INSERT INTO shows(title, tomato, updated_at) VALUES ('the  bear', '99%', '2024-06-01T10:00:00Z')`,
		`INSERT INTO shows(title, tomato, updated_at) VALUES ('THE BEAR', '50%', '2023-01-01T10:00:00Z')`,
		`INSERT INTO shows(title, tomato, updated_at) VALUES ('   ', '10%', '2023-01-01T10:00:00Z')`,
	)
	dst := newTarget(t)

	rep, err := Migrate(context.Background(), src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Read)
	assert.Equal(t, 1, rep.Written)
	assert.Equal(t, 2, rep.Collapsed)
	assert.Equal(t, 1, rep.Skipped)

	rec, err := dst.Get(context.Background(), "the bear")
	require.NoError(t, err)
	assert.Equal(t, "99%", rec.CriticScore)
	assert.Equal(t, model.MediaTV, rec.MediaType)
	assert.Equal(t, model.DefaultCategory(), rec.Category)

	n, err := dst.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMigrate_NoTable(t *testing.T) {
	src := openLegacy(t, `CREATE TABLE other(id INTEGER)`)
	_, err := Migrate(context.Background(), src, newTarget(t), nil)
	assert.Error(t, err)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, model.CategorySuggested, category("Suggestions for Wayne & Sandra"))
	assert.Equal(t, model.CategoryAlsoLiked, category("Also shows we like"))
	assert.Equal(t, model.CategoryPopular, category("popular with others"))
	assert.Equal(t, model.DefaultCategory(), category("whatever"))
	assert.Equal(t, model.DefaultCategory(), category(""))
}
