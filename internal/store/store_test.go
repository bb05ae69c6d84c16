package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pokerjest/showshelf/internal/db"
	"github.com/pokerjest/showshelf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	return New(conn)
}

func TestUpsert_InsertAndDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Upsert(ctx, &model.ShowRecord{Title: "  The Wire ", Year: model.IntPtr(2002)})
	require.NoError(t, err)

	assert.Equal(t, "The Wire", rec.Title)
	assert.Equal(t, "the wire", rec.TitleKey)
	assert.Equal(t, model.MediaTV, rec.MediaType)
	assert.Equal(t, model.DefaultCategory(), rec.Category)
	require.NotNil(t, rec.Year)
	assert.Equal(t, 2002, *rec.Year)
}

func TestUpsert_IsIdempotentAndKeepsCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return first }
	_, err := s.Upsert(ctx, &model.ShowRecord{Title: "Dark", Network: "Netflix", CriticScore: "94%"})
	require.NoError(t, err)

	second := first.Add(time.Hour)
	s.now = func() time.Time { return second }
	rec, err := s.Upsert(ctx, &model.ShowRecord{Title: "DARK", Network: "Netflix", CriticScore: "95%"})
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, "DARK", rec.Title)
	assert.Equal(t, "95%", rec.CriticScore)
	assert.True(t, rec.CreatedAt.Equal(first), "created_at must survive an upsert, got %s", rec.CreatedAt)
	assert.True(t, rec.UpdatedAt.Equal(second), "updated_at must be refreshed, got %s", rec.UpdatedAt)
}

func TestUpsert_WhitespaceVariantsCollapse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Slow Horses", "slow  horses", "\tSLOW horses  "} {
		_, err := s.Upsert(ctx, &model.ShowRecord{Title: title})
		require.NoError(t, err)
	}

	shows, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, "slow horses", shows[0].TitleKey)
}

func TestUpsert_EmptyTitle(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Upsert(context.Background(), &model.ShowRecord{Title: "   "})
	var storageErr *model.StorageError
	assert.True(t, errors.As(err, &storageErr))
}

func TestList_CaseInsensitiveOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"severance", "Andor", "Better Call Saul", "atlanta"} {
		_, err := s.Upsert(ctx, &model.ShowRecord{Title: title})
		require.NoError(t, err)
	}

	shows, err := s.List(ctx)
	require.NoError(t, err)

	var titles []string
	for _, sh := range shows {
		titles = append(titles, sh.Title)
	}
	assert.Equal(t, []string{"Andor", "atlanta", "Better Call Saul", "severance"}, titles)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nothing here")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpsert_ProviderIDsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, &model.ShowRecord{Title: "Breaking Bad", TMDBID: 1396, IMDbID: "tt0903747"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, &model.ShowRecord{Title: "Breaking Bad", TMDBID: 1396, IMDbID: "tt0903747", Network: "AMC"})
	require.NoError(t, err)

	rec, err := s.Get(ctx, "breaking bad")
	require.NoError(t, err)
	assert.Equal(t, 1396, rec.TMDBID)
	assert.Equal(t, "tt0903747", rec.IMDbID)
	assert.Equal(t, "AMC", rec.Network)
}

func TestListMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, &model.ShowRecord{Title: "Complete", Poster: "data:image/png;base64,AA==", CriticScore: "90%"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, &model.ShowRecord{Title: "No Poster", CriticScore: "80%"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, &model.ShowRecord{Title: "No Score", Poster: "assets/posters/x.jpg"})
	require.NoError(t, err)

	missing, err := s.ListMissing(ctx, true)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, "No Poster", missing[0].Title)
	assert.Equal(t, "No Score", missing[1].Title)

	// Without ratings a missing score cannot be filled, so only the poster counts.
	missing, err = s.ListMissing(ctx, false)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "No Poster", missing[0].Title)
}

func TestUpdateFields_OnlyTouchesSuppliedFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, &model.ShowRecord{
		Title:        "Fargo",
		Network:      "FX",
		CriticScore:  "97%",
		PersonalLink: "https://example.com/fargo",
	})
	require.NoError(t, err)

	cat := model.CategoryPopular
	n, err := s.UpdateFields(ctx, "fargo", model.Patch{Category: &cat})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rec, err := s.Get(ctx, "Fargo")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryPopular, rec.Category)
	assert.Equal(t, "97%", rec.CriticScore)
	assert.Equal(t, "FX", rec.Network)
	assert.Equal(t, "https://example.com/fargo", rec.PersonalLink)

	empty := ""
	n, err = s.UpdateFields(ctx, "fargo", model.Patch{PersonalLink: &empty})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	rec, err = s.Get(ctx, "fargo")
	require.NoError(t, err)
	assert.Empty(t, rec.PersonalLink)
}

func TestUpdateFields_EmptyPatchAndUnknownKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.UpdateFields(ctx, "anything", model.Patch{})
	require.NoError(t, err)
	assert.Zero(t, n)

	score := "50%"
	n, err = s.UpdateFields(ctx, "unknown", model.Patch{CriticScore: &score})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDelete_ThenUpdateAffectsNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, &model.ShowRecord{Title: "Chernobyl"})
	require.NoError(t, err)

	n, err := s.Delete(ctx, "CHERNOBYL")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Delete(ctx, "chernobyl")
	require.NoError(t, err)
	assert.Zero(t, n)

	score := "96%"
	n, err = s.UpdateFields(ctx, "chernobyl", model.Patch{CriticScore: &score})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Two writers per title.
			_, err := s.Upsert(ctx, &model.ShowRecord{Title: fmt.Sprintf("Show %d", i%20)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20, n)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isBusy(errors.New("UNIQUE constraint failed")))
	assert.False(t, isBusy(nil))
}
