package content

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// applicationName tags tourstack sessions in pg_stat_activity
const applicationName = "tourstack"

// DB is the PostgreSQL pool behind PGStore
type DB struct {
	pool *pgxpool.Pool
}

// OpenDB connects to the database at databaseURL and checks that it answers
func OpenDB(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if _, set := cfg.ConnConfig.RuntimeParams["application_name"]; !set {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open content database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("content database unreachable: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases every pooled connection
func (d *DB) Close() {
	d.pool.Close()
}

// Pool exposes the pool for schema setup and queries
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}
