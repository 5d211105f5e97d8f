package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/menu-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS catalogs (
	slug         TEXT PRIMARY KEY,
	restaurant   TEXT NOT NULL,
	menu_url     TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	extracted_at DATETIME NOT NULL,
	total_items  INTEGER NOT NULL DEFAULT 0,
	units        TEXT NOT NULL DEFAULT '[]',
	usage        TEXT NOT NULL DEFAULT '{}',
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
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
	price       REAL NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	unit        TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_menu_categories_slug ON menu_categories(slug);
CREATE INDEX IF NOT EXISTS idx_menu_items_slug ON menu_items(slug);
CREATE INDEX IF NOT EXISTS idx_menu_items_category ON menu_items(category_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCatalog(ctx context.Context, c *model.Catalog) error {
	if c == nil || c.Slug == "" {
		return eris.New("sqlite: catalog slug is required")
	}
	unitsJSON, err := json.Marshal(c.Units)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal units")
	}
	usageJSON, err := json.Marshal(c.Usage)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal usage")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_items WHERE slug = ?`, c.Slug); err != nil {
		return eris.Wrapf(err, "sqlite: delete items for %s", c.Slug)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_categories WHERE slug = ?`, c.Slug); err != nil {
		return eris.Wrapf(err, "sqlite: delete categories for %s", c.Slug)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO catalogs (slug, restaurant, menu_url, run_id, extracted_at, total_items, units, usage, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (slug) DO UPDATE SET
		   restaurant = excluded.restaurant,
		   menu_url = excluded.menu_url,
		   run_id = excluded.run_id,
		   extracted_at = excluded.extracted_at,
		   total_items = excluded.total_items,
		   units = excluded.units,
		   usage = excluded.usage,
		   updated_at = excluded.updated_at`,
		c.Slug, c.Restaurant, c.MenuURL, c.RunID, c.ExtractedAt.UTC(), c.TotalItems(),
		string(unitsJSON), string(usageJSON), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert catalog %s", c.Slug)
	}

	cats, items := flatten(c)
	for _, row := range cats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO menu_categories (id, slug, name, parent_menu, position) VALUES (?, ?, ?, ?, ?)`,
			row.id, c.Slug, row.name, row.parentMenu, row.position,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert category %q", row.name)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO menu_items (id, category_id, slug, name, price, description, source, unit, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare item insert")
	}
	defer stmt.Close() //nolint:errcheck

	skipped := 0
	for _, row := range items {
		if _, err := stmt.ExecContext(ctx,
			row.id, row.categoryID, c.Slug, row.name, row.price, row.description, row.source, row.unit, row.position,
		); err != nil {
			skipped++
			zap.L().Warn("sqlite: skipping item",
				zap.String("slug", c.Slug),
				zap.String("item", row.name),
				zap.Error(err),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	zap.L().Info("sqlite: catalog stored",
		zap.String("slug", c.Slug),
		zap.Int("categories", len(cats)),
		zap.Int("items", len(items)-skipped),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (s *SQLiteStore) GetCatalog(ctx context.Context, slug string) (*model.Catalog, error) {
	var c model.Catalog
	var unitsJSON, usageJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT slug, restaurant, menu_url, run_id, extracted_at, units, usage FROM catalogs WHERE slug = ?`, slug,
	).Scan(&c.Slug, &c.Restaurant, &c.MenuURL, &c.RunID, &c.ExtractedAt, &unitsJSON, &usageJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: slug %s", slug)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get catalog %s", slug)
	}
	if err := json.Unmarshal([]byte(unitsJSON), &c.Units); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal units")
	}
	if err := json.Unmarshal([]byte(usageJSON), &c.Usage); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal usage")
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

func (s *SQLiteStore) categories(ctx context.Context, slug string) ([]categoryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, parent_menu, position FROM menu_categories WHERE slug = ? ORDER BY position`, slug)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query categories")
	}
	defer rows.Close() //nolint:errcheck

	var out []categoryRow
	for rows.Next() {
		var r categoryRow
		if err := rows.Scan(&r.id, &r.name, &r.parentMenu, &r.position); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate categories")
}

func (s *SQLiteStore) items(ctx context.Context, slug string) ([]itemRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, name, price, description, source, unit, position
		 FROM menu_items WHERE slug = ? ORDER BY position`, slug)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query items")
	}
	defer rows.Close() //nolint:errcheck

	var out []itemRow
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(&r.id, &r.categoryID, &r.name, &r.price, &r.description, &r.source, &r.unit, &r.position); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate items")
}

func (s *SQLiteStore) ListCatalogs(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, restaurant, menu_url, run_id, total_items, extracted_at FROM catalogs ORDER BY slug`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list catalogs")
	}
	defer rows.Close() //nolint:errcheck

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.Slug, &sm.Restaurant, &sm.MenuURL, &sm.RunID, &sm.TotalItems, &sm.ExtractedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan catalog")
		}
		out = append(out, sm)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate catalogs")
}
