// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/showcaselabs/showcase-indexer/internal/indexer"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// AppStoreConfig controls the Postgres connection pool used for app rows.
type AppStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// AppStore upserts app rows into Postgres.
type AppStore struct {
	pool  execCloser
	table string
}

// NewAppStore creates a Postgres-backed AppStore using the provided config.
func NewAppStore(ctx context.Context, cfg AppStoreConfig) (*AppStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "apps"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &AppStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewAppStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewAppStoreWithPool(pool execCloser, table string) (*AppStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "apps"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &AppStore{pool: pool, table: table}, nil
}

// UpsertApp inserts or replaces the app row keyed by its stable id.
func (s *AppStore) UpsertApp(ctx context.Context, record indexer.AppRecord) error {
	if record.ID == "" {
		return fmt.Errorf("app record id is required")
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, description, image_id, author_name, app_name, social_post_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			image_id = EXCLUDED.image_id,
			author_name = EXCLUDED.author_name,
			app_name = EXCLUDED.app_name,
			social_post_url = EXCLUDED.social_post_url,
			updated_at = now()`, s.table)

	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.URL,
		record.Title,
		record.Description,
		record.ImageID,
		record.AuthorName,
		record.AppName,
		record.SocialPostURL,
	)
	if err != nil {
		return fmt.Errorf("upsert app %s: %w", record.ID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *AppStore) Close() {
	s.pool.Close()
}
