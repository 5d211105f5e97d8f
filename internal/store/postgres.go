package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/db"
	"github.com/sells-group/menu-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var itemColumns = []string{"id", "category_id", "slug", "name", "price", "description", "source", "unit", "position"}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"get_catalog":     `SELECT slug, restaurant, menu_url, run_id, extracted_at, units, usage FROM catalogs WHERE slug = $1`,
	"get_categories":  `SELECT id, name, parent_menu, position FROM menu_categories WHERE slug = $1 ORDER BY position`,
	"get_items":       `SELECT id, category_id, name, price, description, source, unit, position FROM menu_items WHERE slug = $1 ORDER BY position`,
	"delete_items":    `DELETE FROM menu_items WHERE slug = $1`,
	"delete_category": `DELETE FROM menu_categories WHERE slug = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS catalogs (
	slug         TEXT PRIMARY KEY,
	restaurant   TEXT NOT NULL,
	menu_url     TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	extracted_at TIMESTAMPTZ NOT NULL,
	total_items  INTEGER NOT NULL DEFAULT 0,
	units        JSONB NOT NULL DEFAULT '[]',
	usage        JSONB NOT NULL DEFAULT '{}',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS menu_categories (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL REFERENCES catalogs(slug) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	parent_menu TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS menu_items (
	id          TEXT PRIMARY KEY,
	category_id TEXT NOT NULL REFERENCES menu_categories(id) ON DELETE CASCADE,
	slug        TEXT NOT NULL,
	name        TEXT NOT NULL,
	price       DOUBLE PRECISION NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	unit        TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_menu_categories_slug ON menu_categories(slug);
CREATE INDEX IF NOT EXISTS idx_menu_items_slug ON menu_items(slug);
CREATE INDEX IF NOT EXISTS idx_menu_items_category ON menu_items(category_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertCatalog runs its statements outside a transaction so a rejected item
// row does not abort the rest. Items go through COPY first and fall back to
// row inserts when the batch is refused.
func (s *PostgresStore) UpsertCatalog(ctx context.Context, c *model.Catalog) error {
	if c == nil || c.Slug == "" {
		return eris.New("postgres: catalog slug is required")
	}
	unitsJSON, err := json.Marshal(c.Units)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal units")
	}
	usageJSON, err := json.Marshal(c.Usage)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal usage")
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM menu_items WHERE slug = $1`, c.Slug); err != nil {
		return eris.Wrapf(err, "postgres: delete items for %s", c.Slug)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM menu_categories WHERE slug = $1`, c.Slug); err != nil {
		return eris.Wrapf(err, "postgres: delete categories for %s", c.Slug)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO catalogs (slug, restaurant, menu_url, run_id, extracted_at, total_items, units, usage, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (slug) DO UPDATE SET
		   restaurant = EXCLUDED.restaurant,
		   menu_url = EXCLUDED.menu_url,
		   run_id = EXCLUDED.run_id,
		   extracted_at = EXCLUDED.extracted_at,
		   total_items = EXCLUDED.total_items,
		   units = EXCLUDED.units,
		   usage = EXCLUDED.usage,
		   updated_at = EXCLUDED.updated_at`,
		c.Slug, c.Restaurant, c.MenuURL, c.RunID, c.ExtractedAt.UTC(), c.TotalItems(),
		unitsJSON, usageJSON, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert catalog %s", c.Slug)
	}

	cats, items := flatten(c)
	catRows := make([][]any, len(cats))
	for i, row := range cats {
		catRows[i] = []any{row.id, c.Slug, row.name, row.parentMenu, row.position}
	}
	if _, err := db.CopyFrom(ctx, s.pool, "menu_categories",
		[]string{"id", "slug", "name", "parent_menu", "position"}, catRows); err != nil {
		return eris.Wrapf(err, "postgres: insert categories for %s", c.Slug)
	}

	stored, skipped := s.insertItems(ctx, c.Slug, items)
	zap.L().Info("postgres: catalog stored",
		zap.String("slug", c.Slug),
		zap.Int("categories", len(cats)),
		zap.Int("items", stored),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (s *PostgresStore) insertItems(ctx context.Context, slug string, items []itemRow) (stored, skipped int) {
	rows := make([][]any, len(items))
	for i, r := range items {
		rows[i] = []any{r.id, r.categoryID, slug, r.name, r.price, r.description, r.source, r.unit, r.position}
	}
	n, err := db.CopyFrom(ctx, s.pool, "menu_items", itemColumns, rows)
	if err == nil {
		return int(n), 0
	}
	zap.L().Warn("postgres: item copy failed, inserting rows individually",
		zap.String("slug", slug),
		zap.Error(err),
	)

	for i, row := range rows {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO menu_items (id, category_id, slug, name, price, description, source, unit, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, row...,
		); err != nil {
			skipped++
			zap.L().Warn("postgres: skipping item",
				zap.String("slug", slug),
				zap.String("item", items[i].name),
				zap.Error(err),
			)
			continue
		}
		stored++
	}
	return stored, skipped
}

func (s *PostgresStore) GetCatalog(ctx context.Context, slug string) (*model.Catalog, error) {
	var c model.Catalog
	var unitsJSON, usageJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT slug, restaurant, menu_url, run_id, extracted_at, units, usage FROM catalogs WHERE slug = $1`, slug,
	).Scan(&c.Slug, &c.Restaurant, &c.MenuURL, &c.RunID, &c.ExtractedAt, &unitsJSON, &usageJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: slug %s", slug)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get catalog %s", slug)
	}
	if len(unitsJSON) > 0 {
		if err := json.Unmarshal(unitsJSON, &c.Units); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal units")
		}
	}
	if len(usageJSON) > 0 {
		if err := json.Unmarshal(usageJSON, &c.Usage); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal usage")
		}
	}

	cats, err := s.categories(ctx, slug)
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.Categories = assemble(cats, items)
	return &c, nil
}

func (s *PostgresStore) categories(ctx context.Context, slug string) ([]categoryRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, parent_menu, position FROM menu_categories WHERE slug = $1 ORDER BY position`, slug)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query categories")
	}
	defer rows.Close()

	var out []categoryRow
	for rows.Next() {
		var r categoryRow
		if err := rows.Scan(&r.id, &r.name, &r.parentMenu, &r.position); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate categories")
}

func (s *PostgresStore) items(ctx context.Context, slug string) ([]itemRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, category_id, name, price, description, source, unit, position
		 FROM menu_items WHERE slug = $1 ORDER BY position`, slug)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query items")
	}
	defer rows.Close()

	var out []itemRow
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(&r.id, &r.categoryID, &r.name, &r.price, &r.description, &r.source, &r.unit, &r.position); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate items")
}

func (s *PostgresStore) ListCatalogs(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slug, restaurant, menu_url, run_id, total_items, extracted_at FROM catalogs ORDER BY slug`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list catalogs")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.Slug, &sm.Restaurant, &sm.MenuURL, &sm.RunID, &sm.TotalItems, &sm.ExtractedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan catalog")
		}
		out = append(out, sm)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate catalogs")
}
