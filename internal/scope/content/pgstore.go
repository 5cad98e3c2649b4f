package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	slug       TEXT        NOT NULL,
	title      TEXT        NOT NULL,
	fields     JSONB       NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS entities_kind_slug_idx ON entities (kind, slug);
`

const selectColumns = `kind, id, slug, title, fields, created_at, updated_at`

// PGStore stores entities in PostgreSQL with fields in a JSONB column
type PGStore struct {
	db *DB
}

// NewPGStore wraps an open database
func NewPGStore(db *DB) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the entities table if needed
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Pool().Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PGStore) pool() *pgxpool.Pool {
	return s.db.Pool()
}

// Put upserts an entity
func (s *PGStore) Put(ctx context.Context, e Entity) error {
	fields, err := fieldsJSON(e.Fields)
	if err != nil {
		return err
	}

	_, err = s.pool().Exec(ctx, `
		INSERT INTO entities (kind, id, slug, title, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		ON CONFLICT (kind, id) DO UPDATE SET
			slug = EXCLUDED.slug,
			title = EXCLUDED.title,
			fields = EXCLUDED.fields,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, string(e.Kind), e.ID, e.Slug, e.Title, fields, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store entity %s: %w", e.Key(), err)
	}
	return nil
}

func fieldsJSON(v record.Value) (string, error) {
	if v.Kind() != record.KindObject {
		return "{}", nil
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

// Get retrieves an entity by kind and id
func (s *PGStore) Get(ctx context.Context, kind Kind, id string) (Entity, error) {
	row := s.pool().QueryRow(ctx,
		`SELECT `+selectColumns+` FROM entities WHERE kind = $1 AND id = $2`,
		string(kind), id)
	return scanEntity(row)
}

// GetBySlug retrieves the lowest-id entity of kind with the given slug
func (s *PGStore) GetBySlug(ctx context.Context, kind Kind, slug string) (Entity, error) {
	row := s.pool().QueryRow(ctx,
		`SELECT `+selectColumns+` FROM entities WHERE kind = $1 AND slug = $2 ORDER BY id LIMIT 1`,
		string(kind), slug)
	return scanEntity(row)
}

// Delete removes an entity
func (s *PGStore) Delete(ctx context.Context, kind Kind, id string) error {
	tag, err := s.pool().Exec(ctx, `DELETE FROM entities WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of entities of kind
func (s *PGStore) List(ctx context.Context, kind Kind, opts ListOptions) ([]Entity, error) {
	offset := max(opts.Offset, 0)
	rows, err := s.pool().Query(ctx, `
		SELECT `+selectColumns+` FROM entities
		WHERE ($1 = '' OR kind = $1)
		ORDER BY kind, id
		LIMIT NULLIF($2::int, 0) OFFSET $3
	`, string(kind), opts.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	result := []Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return result, nil
}

// Count returns the number of entities of kind
func (s *PGStore) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	err := s.pool().QueryRow(ctx,
		`SELECT count(*) FROM entities WHERE ($1 = '' OR kind = $1)`, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return n, nil
}

// Flush is a no-op; every write is committed immediately
func (s *PGStore) Flush() error { return nil }

// Close closes the connection pool
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

func scanEntity(row pgx.Row) (Entity, error) {
	var (
		e               Entity
		kind            string
		fields          []byte
		created, update time.Time
	)
	if err := row.Scan(&kind, &e.ID, &e.Slug, &e.Title, &fields, &created, &update); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entity{}, ErrNotFound
		}
		return Entity{}, fmt.Errorf("failed to scan entity: %w", err)
	}

	v, err := record.ParseJSON(fields)
	if err != nil {
		return Entity{}, fmt.Errorf("failed to decode fields of %s/%s: %w", kind, e.ID, err)
	}
	e.Kind = Kind(kind)
	e.Fields = v
	e.CreatedAt = created.UTC()
	e.UpdatedAt = update.UTC()
	return e, nil
}
