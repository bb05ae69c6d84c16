package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pokerjest/showshelf/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are overwritten on a title_key conflict. created_at is deliberately absent.
var upsertColumns = []string{
	"title", "year", "media_type", "tmdb_id", "imdb_id", "network", "genres",
	"first_aired", "status", "seasons", "episodes", "synopsis", "poster",
	"critic_score", "audience_score", "category", "personal_link", "updated_at",
}

// Store is the local show cache. Writes are serialized; reads are not.
type Store struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time

	retryAttempts uint
	retryDelay    time.Duration
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		now:           time.Now,
		retryAttempts: 5,
		retryDelay:    50 * time.Millisecond,
	}
}

// DB exposes the handle for maintenance tools.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// write runs fn under the writer lock, retrying while SQLite reports the file busy.
func (s *Store) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := retry.Do(
		func() error { return fn(s.db.WithContext(ctx)) },
		retry.Context(ctx),
		retry.Attempts(s.retryAttempts),
		retry.Delay(s.retryDelay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return &model.StorageError{Op: op, Err: err}
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}

// Upsert inserts rec or overwrites the row sharing its title_key, keeping created_at.
func (s *Store) Upsert(ctx context.Context, rec *model.ShowRecord) (*model.ShowRecord, error) {
	row := *rec
	row.ID = 0
	row.ApplyDefaults()
	if row.TitleKey == "" {
		return nil, &model.StorageError{Op: "upsert", Err: errors.New("empty title")}
	}
	now := s.now()
	row.CreatedAt = now
	row.UpdatedAt = now

	err := s.write(ctx, "upsert", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title_key"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, row.TitleKey)
}

// List returns every record ordered by display title.
func (s *Store) List(ctx context.Context) ([]model.ShowRecord, error) {
	var shows []model.ShowRecord
	err := s.db.WithContext(ctx).
		Order("title COLLATE NOCASE ASC").
		Order("title ASC").
		Find(&shows).Error
	return shows, err
}

// ListMissing returns records still lacking a poster. With withScore set,
// records lacking a critic score are included too.
func (s *Store) ListMissing(ctx context.Context, withScore bool) ([]model.ShowRecord, error) {
	cond := "poster IS NULL OR poster = ''"
	if withScore {
		cond += " OR critic_score IS NULL OR critic_score = ''"
	}
	var shows []model.ShowRecord
	err := s.db.WithContext(ctx).
		Where(cond).
		Order("title COLLATE NOCASE ASC").
		Find(&shows).Error
	return shows, err
}

// Get looks a record up by title key. Raw titles are normalized first.
func (s *Store) Get(ctx context.Context, key string) (*model.ShowRecord, error) {
	var rec model.ShowRecord
	err := s.db.WithContext(ctx).Where("title_key = ?", model.NormalizeTitle(key)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.ShowRecord{}).Count(&n).Error
	return n, err
}

// UpdateFields touches only the fields present in p and reports affected rows.
func (s *Store) UpdateFields(ctx context.Context, key string, p model.Patch) (int64, error) {
	if p.Empty() {
		return 0, nil
	}
	updates := map[string]interface{}{"updated_at": s.now()}
	if p.TMDBID != nil {
		updates["tmdb_id"] = *p.TMDBID
	}
	if p.Poster != nil {
		updates["poster"] = *p.Poster
	}
	if p.CriticScore != nil {
		updates["critic_score"] = *p.CriticScore
	}
	if p.Category != nil {
		updates["category"] = *p.Category
	}
	if p.PersonalLink != nil {
		updates["personal_link"] = strings.TrimSpace(*p.PersonalLink)
	}

	var affected int64
	err := s.write(ctx, "update", func(tx *gorm.DB) error {
		res := tx.Model(&model.ShowRecord{}).
			Where("title_key = ?", model.NormalizeTitle(key)).
			UpdateColumns(updates)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// Delete removes the record; deleting an unknown key affects zero rows.
func (s *Store) Delete(ctx context.Context, key string) (int64, error) {
	var affected int64
	err := s.write(ctx, "delete", func(tx *gorm.DB) error {
		res := tx.Where("title_key = ?", model.NormalizeTitle(key)).Delete(&model.ShowRecord{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}
