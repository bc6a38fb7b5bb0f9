package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// FindOrCreateEntity returns the ID for an entity by (type, name),
// creating the row when absent. Entity resolution against teams and
// players rosters is a stub; rows carry display names only.
func (s *Store) FindOrCreateEntity(ctx context.Context, entityType, displayName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("id").
		From("entities").
		Where(sq.Eq{"entity_type": entityType, "display_name": displayName}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("scan entity: %w", err)
	}

	query, args, err = s.sb.
		Insert("entities").
		Columns("entity_type", "display_name").
		Values(entityType, displayName).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert entity: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// LinkEventEntity attaches an entity to an event with a role. Existing
// links are left untouched.
func (s *Store) LinkEventEntity(ctx context.Context, eventID, entityID int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO event_entities (event_id, entity_id, role)
		VALUES (?, ?, ?)
	`, eventID, entityID, role)
	if err != nil {
		return fmt.Errorf("link event entity: %w", err)
	}
	return nil
}
