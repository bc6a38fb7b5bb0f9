package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gridwire/gridwire/internal/model"
)

// GetWatermark returns the stored watermark for a source key or nil if
// the source has never completed a batch. Naive stored timestamps are
// coerced to UTC.
func (s *Store) GetWatermark(ctx context.Context, key string) (*model.SourceWatermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("source_key", "last_publication_date", "last_url").
		From("source_watermarks").
		Where(sq.Eq{"source_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var wm model.SourceWatermark
	var last sql.NullTime
	var lastURL sql.NullString
	row := s.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&wm.SourceKey, &last, &lastURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan watermark: %w", err)
	}
	if last.Valid {
		wm.LastPublicationDate = model.ToUTC(&last.Time)
	}
	wm.LastURL = lastURL.String
	return &wm, nil
}

// UpsertWatermark writes the watermark for a source key. Only non-null
// incoming values override: a nil timestamp or empty URL keeps whatever
// is already stored for that column.
func (s *Store) UpsertWatermark(ctx context.Context, key string, t *time.Time, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_watermarks (source_key, last_publication_date, last_url, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET
			last_publication_date = COALESCE(excluded.last_publication_date, source_watermarks.last_publication_date),
			last_url = CASE WHEN excluded.last_url != '' THEN excluded.last_url ELSE source_watermarks.last_url END,
			updated_at = excluded.updated_at
	`, key, t, url, now)
	if err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	return nil
}
