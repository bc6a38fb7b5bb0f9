package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gridwire/gridwire/internal/model"
)

// AppendLog writes one row to the append-only processing audit trail.
func (s *Store) AppendLog(ctx context.Context, entry model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	query, args, err := s.sb.
		Insert("processing_log").
		Columns("created_at", "level", "message", "article_url", "metadata").
		Values(created, entry.Level, entry.Message, entry.ArticleURL, entry.Metadata).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// RecentLogs returns up to limit newest log entries.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("created_at", "level", "message", "article_url", "metadata").
		From("processing_log").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var articleURL, metadata sql.NullString
		if err := rows.Scan(&e.CreatedAt, &e.Level, &e.Message, &articleURL, &metadata); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.ArticleURL = articleURL.String
		e.Metadata = metadata.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}
