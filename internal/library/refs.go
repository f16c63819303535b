package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bandstand/internal/services"
)

const refColumns = `id, entity_type, entity_id, catalog, external_id, url, ambiguous, verified_at, created_at, updated_at`

func scanRef(scanner rowScanner) (*ExternalRef, error) {
	var (
		ref                ExternalRef
		url                sql.NullString
		ambiguous          int
		verifiedAt         sql.NullString
		createdAt, updated string
	)
	if err := scanner.Scan(&ref.ID, &ref.EntityType, &ref.EntityID, &ref.Catalog, &ref.ExternalID,
		&url, &ambiguous, &verifiedAt, &createdAt, &updated); err != nil {
		return nil, err
	}
	ref.URL = url.String
	ref.Ambiguous = ambiguous != 0
	if verifiedAt.Valid {
		ts := parseTimeString(verifiedAt.String)
		ref.VerifiedAt = &ts
	}
	ref.CreatedAt = parseTimeString(createdAt)
	ref.UpdatedAt = parseTimeString(updated)
	return &ref, nil
}

// UpsertRef records an external reference for an entity. A repeat of the
// same (entity_type, catalog, external_id) re-points the reference; when an
// entity accumulates more than one reference in the same catalog, every
// reference in that group is flagged ambiguous so enrichment skips it until
// an operator resolves the conflict.
func (s *Store) UpsertRef(ctx context.Context, entityType string, entityID int64, catalogName, externalID, url string) (*ExternalRef, error) {
	now := nowString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO external_refs (entity_type, entity_id, catalog, external_id, url, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(entity_type, catalog, external_id)
         DO UPDATE SET entity_id = excluded.entity_id, url = excluded.url, updated_at = excluded.updated_at`,
		entityType, entityID, catalogName, externalID, nullableString(url), now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert ref: %w", err)
	}

	var group int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM external_refs WHERE entity_type = ? AND entity_id = ? AND catalog = ?`,
		entityType, entityID, catalogName).Scan(&group)
	if err != nil {
		return nil, fmt.Errorf("count refs: %w", err)
	}
	if group > 1 {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE external_refs SET ambiguous = 1, updated_at = ?
             WHERE entity_type = ? AND entity_id = ? AND catalog = ?`,
			now, entityType, entityID, catalogName); err != nil {
			return nil, fmt.Errorf("flag ambiguous refs: %w", err)
		}
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+refColumns+` FROM external_refs WHERE entity_type = ? AND catalog = ? AND external_id = ?`,
		entityType, catalogName, externalID)
	ref, err := scanRef(row)
	if err != nil {
		return nil, fmt.Errorf("read ref: %w", err)
	}
	return ref, nil
}

// FindRef returns the reference holding one external identifier, or nil
// when the catalog page was never linked.
func (s *Store) FindRef(ctx context.Context, entityType, catalogName, externalID string) (*ExternalRef, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+refColumns+` FROM external_refs WHERE entity_type = ? AND catalog = ? AND external_id = ?`,
		entityType, catalogName, externalID)
	ref, err := scanRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ref: %w", err)
	}
	return ref, nil
}

// GetRef fetches an external reference by identifier.
func (s *Store) GetRef(ctx context.Context, id int64) (*ExternalRef, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+refColumns+` FROM external_refs WHERE id = ?`, id)
	ref, err := scanRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "library", "get_ref", fmt.Sprintf("ref %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get ref: %w", err)
	}
	return ref, nil
}

// RefsForEntity returns the external references of one entity.
func (s *Store) RefsForEntity(ctx context.Context, entityType string, entityID int64) ([]*ExternalRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+refColumns+` FROM external_refs WHERE entity_type = ? AND entity_id = ? ORDER BY id`,
		entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("refs for entity: %w", err)
	}
	defer rows.Close()
	return collectRefs(rows)
}

// RefForCatalog returns the unambiguous reference an entity holds in one
// catalog, or nil when the entity has none or the group is ambiguous.
func (s *Store) RefForCatalog(ctx context.Context, entityType string, entityID int64, catalogName string) (*ExternalRef, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+refColumns+` FROM external_refs
         WHERE entity_type = ? AND entity_id = ? AND catalog = ? AND ambiguous = 0
         ORDER BY id LIMIT 1`,
		entityType, entityID, catalogName)
	ref, err := scanRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ref for catalog: %w", err)
	}
	return ref, nil
}

// ListRefs returns external references, optionally filtered by catalog.
func (s *Store) ListRefs(ctx context.Context, catalogName string) ([]*ExternalRef, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if catalogName == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+refColumns+` FROM external_refs ORDER BY id`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+refColumns+` FROM external_refs WHERE catalog = ? ORDER BY id`, catalogName)
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer rows.Close()
	return collectRefs(rows)
}

func collectRefs(rows *sql.Rows) ([]*ExternalRef, error) {
	var refs []*ExternalRef
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// MarkRefVerified stamps a reference with the time it last passed validation.
func (s *Store) MarkRefVerified(ctx context.Context, id int64, when time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE external_refs SET verified_at = ?, updated_at = ? WHERE id = ?`,
		when.UTC().Format(time.RFC3339Nano), nowString(), id)
	if err != nil {
		return fmt.Errorf("mark ref verified: %w", err)
	}
	return nil
}

// SetRefAmbiguous flags or clears the ambiguity marker on one reference.
func (s *Store) SetRefAmbiguous(ctx context.Context, id int64, ambiguous bool) error {
	value := 0
	if ambiguous {
		value = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE external_refs SET ambiguous = ?, updated_at = ? WHERE id = ?`,
		value, nowString(), id)
	if err != nil {
		return fmt.Errorf("set ref ambiguous: %w", err)
	}
	return nil
}

// DeleteRef removes an external reference. Only the reference validator's
// purge path calls this.
func (s *Store) DeleteRef(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM external_refs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ref: %w", err)
	}
	return nil
}
