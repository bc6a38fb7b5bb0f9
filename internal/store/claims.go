package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gridwire/gridwire/internal/model"
)

// FindOrCreateClaim returns the claim for (event, text), creating it when
// absent. The second return reports whether a new row was created.
func (s *Store) FindOrCreateClaim(ctx context.Context, eventID int64, text, status string) (*model.Claim, bool, error) {
	if status == "" {
		status = model.ClaimStatusReported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("id", "event_id", "claim_text", "status", "confidence").
		From("claims").
		Where(sq.Eq{"event_id": eventID, "claim_text": text}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build select: %w", err)
	}

	var c model.Claim
	var confidence sql.NullFloat64
	row := s.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&c.ID, &c.EventID, &c.ClaimText, &c.Status, &confidence)
	if err == nil {
		if confidence.Valid {
			c.Confidence = &confidence.Float64
		}
		return &c, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("scan claim: %w", err)
	}

	query, args, err = s.sb.
		Insert("claims").
		Columns("event_id", "claim_text", "status").
		Values(eventID, text, status).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("insert claim: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}

	return &model.Claim{ID: id, EventID: eventID, ClaimText: text, Status: status}, true, nil
}

// SetClaimConfidenceIfUnset writes the claim confidence only when it has
// never been scored. Returns whether a write happened.
func (s *Store) SetClaimConfidenceIfUnset(ctx context.Context, claimID int64, confidence float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE claims SET confidence = ? WHERE id = ? AND confidence IS NULL
	`, confidence, claimID)
	if err != nil {
		return false, fmt.Errorf("set claim confidence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindOrCreateSource returns the ID for a citation source by name,
// creating the row when absent.
func (s *Store) FindOrCreateSource(ctx context.Context, name, publisher, url string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("id").
		From("sources").
		Where(sq.Eq{"name": name}).
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
		return 0, fmt.Errorf("scan source: %w", err)
	}

	query, args, err = s.sb.
		Insert("sources").
		Columns("name", "publisher", "url").
		Values(name, publisher, url).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// AttachClaimSource records provenance for a claim.
func (s *Store) AttachClaimSource(ctx context.Context, cs model.ClaimSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sourceID any
	if cs.SourceID != 0 {
		sourceID = cs.SourceID
	}

	query, args, err := s.sb.
		Insert("claim_sources").
		Columns("claim_id", "source_id", "url", "citation").
		Values(cs.ClaimID, sourceID, cs.URL, cs.Citation).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("attach claim source: %w", err)
	}
	return nil
}

// ClaimsForEvent returns the claims attached to an event.
func (s *Store) ClaimsForEvent(ctx context.Context, eventID int64) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("id", "event_id", "claim_text", "status", "confidence").
		From("claims").
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var confidence sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.EventID, &c.ClaimText, &c.Status, &confidence); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		if confidence.Valid {
			c.Confidence = &confidence.Float64
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return claims, nil
}

// ClaimCitations returns the stored citation URLs for a claim.
func (s *Store) ClaimCitations(ctx context.Context, claimID int64) ([]model.ClaimSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := s.sb.
		Select("claim_id", "source_id", "url", "citation").
		From("claim_sources").
		Where(sq.Eq{"claim_id": claimID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claim sources: %w", err)
	}
	defer rows.Close()

	var sources []model.ClaimSource
	for rows.Next() {
		var cs model.ClaimSource
		var sourceID sql.NullInt64
		var url, citation sql.NullString
		if err := rows.Scan(&cs.ClaimID, &sourceID, &url, &citation); err != nil {
			return nil, fmt.Errorf("scan claim source: %w", err)
		}
		cs.SourceID = sourceID.Int64
		cs.URL = url.String
		cs.Citation = citation.String
		sources = append(sources, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}
