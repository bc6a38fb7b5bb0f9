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

// FindOrCreateEvent returns the event with the given signature, creating
// it when absent. Reuse bumps updated_at so active clusters surface in
// listings. The second return reports whether a new row was created.
func (s *Store) FindOrCreateEvent(ctx context.Context, signature, title string, eventDate *time.Time, eventType string) (*model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.eventBySignature(ctx, signature)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		now := time.Now().UTC()
		query, args, err := s.sb.
			Update("events").
			Set("updated_at", now).
			Where(sq.Eq{"id": existing.ID}).
			ToSql()
		if err != nil {
			return nil, false, fmt.Errorf("build update: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, false, fmt.Errorf("touch event: %w", err)
		}
		existing.UpdatedAt = now
		return existing, false, nil
	}

	now := time.Now().UTC()
	query, args, err := s.sb.
		Insert("events").
		Columns("signature", "event_date", "event_type", "title", "created_at", "updated_at").
		Values(signature, eventDate, eventType, title, now, now).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}

	return &model.Event{
		ID:        id,
		Signature: signature,
		EventDate: eventDate,
		EventType: eventType,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, true, nil
}

// eventBySignature returns the event for a signature or nil. Caller must
// hold s.mu.
func (s *Store) eventBySignature(ctx context.Context, signature string) (*model.Event, error) {
	query, args, err := s.sb.
		Select("id", "signature", "event_date", "event_type", "title", "summary", "confidence", "created_at", "updated_at").
		From("events").
		Where(sq.Eq{"signature": signature}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	row := s.db.QueryRowContext(ctx, query, args...)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// GetEvent returns the event with the given ID, or nil when absent.
func (s *Store) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("id", "signature", "event_date", "event_type", "title", "summary", "confidence", "created_at", "updated_at").
		From("events").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	row := s.db.QueryRowContext(ctx, query, args...)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// LinkEventArticle attaches an article row to an event. Existing links
// are left untouched.
func (s *Store) LinkEventArticle(ctx context.Context, eventID, articleID int64, relation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO event_articles (event_id, article_id, relation)
		VALUES (?, ?, ?)
	`, eventID, articleID, relation)
	if err != nil {
		return fmt.Errorf("link event article: %w", err)
	}
	return nil
}

// SetEventConfidenceIfUnset writes the confidence score only when the
// event has never been scored. Returns whether a write happened.
func (s *Store) SetEventConfidenceIfUnset(ctx context.Context, eventID int64, confidence float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET confidence = ? WHERE id = ? AND confidence IS NULL
	`, confidence, eventID)
	if err != nil {
		return false, fmt.Errorf("set confidence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateEventSummary replaces the event's stored summary text.
func (s *Store) UpdateEventSummary(ctx context.Context, eventID int64, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Update("events").
		Set("summary", summary).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": eventID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}

// EventFilter narrows ListEvents output. Zero values mean no filtering.
type EventFilter struct {
	EventType string
	Since     *time.Time
	Limit     int
}

// ListEvents returns events ordered by most recently updated.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	builder := s.sb.
		Select("id", "signature", "event_date", "event_type", "title", "summary", "confidence", "created_at", "updated_at").
		From("events").
		OrderBy("updated_at DESC")
	if filter.EventType != "" {
		builder = builder.Where(sq.Eq{"event_type": filter.EventType})
	}
	if filter.Since != nil {
		builder = builder.Where(sq.GtOrEq{"updated_at": *filter.Since})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return events, nil
}

// EventArticles returns the articles linked to an event, newest first.
func (s *Store) EventArticles(ctx context.Context, eventID int64) ([]model.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("a.id", "a.url", "a.title", "a.publisher", "a.publication_date", "a.content_summary", "a.author", "a.created_at").
		From("articles a").
		Join("event_articles ea ON ea.article_id = a.id").
		Where(sq.Eq{"ea.event_id": eventID}).
		OrderBy("a.publication_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query event articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var pub sql.NullTime
		var summary, author sql.NullString
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Publisher, &pub, &summary, &author, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if pub.Valid {
			a.PublicationDate = model.ToUTC(&pub.Time)
		}
		a.ContentSummary = summary.String
		a.Author = author.String
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// scanner abstracts *sql.Row and *sql.Rows for event scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*model.Event, error) {
	var ev model.Event
	var eventDate sql.NullTime
	var eventType, title, summary sql.NullString
	var confidence sql.NullFloat64
	err := row.Scan(&ev.ID, &ev.Signature, &eventDate, &eventType, &title, &summary, &confidence, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if eventDate.Valid {
		ev.EventDate = model.ToUTC(&eventDate.Time)
	}
	ev.EventType = eventType.String
	ev.Title = title.String
	ev.Summary = summary.String
	if confidence.Valid {
		ev.Confidence = &confidence.Float64
	}
	return &ev, nil
}
