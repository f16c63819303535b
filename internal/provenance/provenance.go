package provenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bandstand/internal/library"
	"bandstand/internal/services"
)

// Store reads and writes the layered columns of the library tables. Every
// layered field carries a crawled slot (written by importers, attributed to
// a catalog) and a curated slot (written by operators, attributed to a
// person); reads project curated over crawled.
type Store struct {
	db *sql.DB
}

// New wraps the library store's database connection.
func New(store *library.Store) *Store {
	return &Store{db: store.DB()}
}

type entityFields struct {
	table  string
	fields map[string]bool
}

// fieldRegistry whitelists the layered fields per entity. Field names are
// interpolated into SQL, so nothing outside this map may ever reach a query.
var fieldRegistry = map[string]entityFields{
	library.EntitySong: {
		table:  "songs",
		fields: map[string]bool{"title": true, "composer": true},
	},
	library.EntityPerformer: {
		table:  "performers",
		fields: map[string]bool{"name": true, "biography": true, "image_url": true},
	},
	library.EntityRecording: {
		table:  "recordings",
		fields: map[string]bool{"title": true, "recorded_on": true},
	},
	library.EntityRelease: {
		table:  "releases",
		fields: map[string]bool{"title": true, "label": true, "year": true, "cover_url": true},
	},
}

func resolveField(entityType, field string) (string, error) {
	entity, ok := fieldRegistry[entityType]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "provenance", "resolve_field",
			fmt.Sprintf("unknown entity type %q", entityType), nil)
	}
	if !entity.fields[field] {
		return "", services.Wrap(services.ErrValidation, "provenance", "resolve_field",
			fmt.Sprintf("field %q is not layered on %s", field, entityType), nil)
	}
	return entity.table, nil
}

// Fields returns the layered field names of an entity type, for API and CLI
// validation surfaces.
func Fields(entityType string) []string {
	entity, ok := fieldRegistry[entityType]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(entity.fields))
	for name := range entity.fields {
		names = append(names, name)
	}
	return names
}

func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// SetCrawled writes the crawled slot of a field, attributed to a catalog
// source. A blank source is rejected so every crawled value stays
// attributable. The curated slot is never touched, so operator corrections
// survive any number of re-imports. Re-writing the same value refreshes
// the crawl timestamp.
func (s *Store) SetCrawled(ctx context.Context, entityType string, id int64, field, value, source string) error {
	if strings.TrimSpace(source) == "" {
		return services.Wrap(services.ErrValidation, "provenance", "set_crawled",
			fmt.Sprintf("crawled %s.%s requires a source", entityType, field), nil)
	}
	table, err := resolveField(entityType, field)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		`UPDATE %s SET %s_crawled = ?, %s_crawled_at = ?, %s_crawled_source = ?, updated_at = ? WHERE id = ?`,
		table, field, field, field)
	res, err := s.db.ExecContext(ctx, query, nullable(value), nowString(), nullable(source), nowString(), id)
	if err != nil {
		return fmt.Errorf("set crawled %s.%s: %w", entityType, field, err)
	}
	return requireRow(res, entityType, id)
}

// SetCurated writes the curated slot of a field, attributed to the curator.
// The crawled slot is never touched.
func (s *Store) SetCurated(ctx context.Context, entityType string, id int64, field, value, curator string) error {
	table, err := resolveField(entityType, field)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		`UPDATE %s SET %s_curated = ?, %s_curated_at = ?, %s_curated_by = ?, updated_at = ? WHERE id = ?`,
		table, field, field, field)
	res, err := s.db.ExecContext(ctx, query, nullable(value), nowString(), nullable(curator), nowString(), id)
	if err != nil {
		return fmt.Errorf("set curated %s.%s: %w", entityType, field, err)
	}
	return requireRow(res, entityType, id)
}

// ClearCurated empties the curated slot so the crawled value shows through
// again.
func (s *Store) ClearCurated(ctx context.Context, entityType string, id int64, field string) error {
	table, err := resolveField(entityType, field)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		`UPDATE %s SET %s_curated = NULL, %s_curated_at = NULL, %s_curated_by = NULL, updated_at = ? WHERE id = ?`,
		table, field, field, field)
	res, err := s.db.ExecContext(ctx, query, nowString(), id)
	if err != nil {
		return fmt.Errorf("clear curated %s.%s: %w", entityType, field, err)
	}
	return requireRow(res, entityType, id)
}

func requireRow(res sql.Result, entityType string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "provenance", "update",
			fmt.Sprintf("%s %d", entityType, id), nil)
	}
	return nil
}

// Computed returns the effective value of a field: curated when present,
// crawled otherwise. ok reports whether either slot holds a value.
func (s *Store) Computed(ctx context.Context, entityType string, id int64, field string) (string, bool, error) {
	table, err := resolveField(entityType, field)
	if err != nil {
		return "", false, err
	}
	query := fmt.Sprintf(`SELECT COALESCE(%s_curated, %s_crawled) FROM %s WHERE id = ?`, field, field, table)
	var value sql.NullString
	err = s.db.QueryRowContext(ctx, query, id).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, services.Wrap(services.ErrNotFound, "provenance", "computed",
			fmt.Sprintf("%s %d", entityType, id), nil)
	}
	if err != nil {
		return "", false, fmt.Errorf("computed %s.%s: %w", entityType, field, err)
	}
	return value.String, value.Valid, nil
}

// Slot is one layer of a field with its attribution.
type Slot struct {
	Value string
	At    time.Time
	By    string
	Valid bool
}

// Layers is the full audit view of one field.
type Layers struct {
	EntityType string
	EntityID   int64
	Field      string
	Crawled    Slot
	Curated    Slot
}

// Effective returns the value a reader sees.
func (l *Layers) Effective() (string, bool) {
	if l.Curated.Valid {
		return l.Curated.Value, true
	}
	if l.Crawled.Valid {
		return l.Crawled.Value, true
	}
	return "", false
}

// Layers returns both slots of a field with their attribution, for audit
// and review surfaces.
func (s *Store) Layers(ctx context.Context, entityType string, id int64, field string) (*Layers, error) {
	table, err := resolveField(entityType, field)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT %s_crawled, %s_crawled_at, %s_crawled_source, %s_curated, %s_curated_at, %s_curated_by
         FROM %s WHERE id = ?`,
		field, field, field, field, field, field, table)
	var (
		crawled, crawledAt, crawledSource sql.NullString
		curated, curatedAt, curatedBy     sql.NullString
	)
	err = s.db.QueryRowContext(ctx, query, id).Scan(
		&crawled, &crawledAt, &crawledSource, &curated, &curatedAt, &curatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "provenance", "layers",
			fmt.Sprintf("%s %d", entityType, id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("layers %s.%s: %w", entityType, field, err)
	}
	return &Layers{
		EntityType: entityType,
		EntityID:   id,
		Field:      field,
		Crawled: Slot{
			Value: crawled.String,
			At:    parseTime(crawledAt.String),
			By:    crawledSource.String,
			Valid: crawled.Valid,
		},
		Curated: Slot{
			Value: curated.String,
			At:    parseTime(curatedAt.String),
			By:    curatedBy.String,
			Valid: curated.Valid,
		},
	}, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
