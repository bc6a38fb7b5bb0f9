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

// UpsertArticle inserts the article or updates the existing row with the
// same URL, returning the row ID. On update, only non-empty incoming
// fields replace stored values.
func (s *Store) UpsertArticle(ctx context.Context, a *model.Article) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("validate article: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.articleByURL(ctx, a.URL)
	if err != nil {
		return 0, err
	}

	if existing == nil {
		query, args, err := s.sb.
			Insert("articles").
			Columns("url", "title", "publisher", "publication_date", "content_summary", "author", "created_at").
			Values(a.URL, a.Title, a.Publisher, a.PublicationDate, a.ContentSummary, a.Author, time.Now().UTC()).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert article: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
		return id, nil
	}

	update := s.sb.Update("articles").Where(sq.Eq{"id": existing.ID})
	changed := false
	if a.Title != "" && a.Title != existing.Title {
		update = update.Set("title", a.Title)
		changed = true
	}
	if a.Publisher != "" && a.Publisher != existing.Publisher {
		update = update.Set("publisher", a.Publisher)
		changed = true
	}
	if a.PublicationDate != nil {
		update = update.Set("publication_date", a.PublicationDate)
		changed = true
	}
	if a.ContentSummary != "" && a.ContentSummary != existing.ContentSummary {
		update = update.Set("content_summary", a.ContentSummary)
		changed = true
	}
	if a.Author != "" && a.Author != existing.Author {
		update = update.Set("author", a.Author)
		changed = true
	}
	if !changed {
		return existing.ID, nil
	}

	query, args, err := update.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("update article: %w", err)
	}
	return existing.ID, nil
}

// GetArticleByURL returns the stored article for a URL or nil if absent.
func (s *Store) GetArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.articleByURL(ctx, url)
}

// articleByURL is the lock-free variant. Caller must hold s.mu.
func (s *Store) articleByURL(ctx context.Context, url string) (*model.Article, error) {
	query, args, err := s.sb.
		Select("id", "url", "title", "publisher", "publication_date", "content_summary", "author", "created_at").
		From("articles").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var a model.Article
	var pub sql.NullTime
	var summary, author sql.NullString
	row := s.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&a.ID, &a.URL, &a.Title, &a.Publisher, &pub, &summary, &author, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan article: %w", err)
	}
	if pub.Valid {
		a.PublicationDate = model.ToUTC(&pub.Time)
	}
	a.ContentSummary = summary.String
	a.Author = author.String
	return &a, nil
}
