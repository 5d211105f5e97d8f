// Package store persists extracted catalogs. Upserts replace everything
// previously stored for a slug.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-cli/internal/config"
	"github.com/sells-group/menu-cli/internal/model"
)

// ErrNotFound is returned when no catalog is stored for a slug.
var ErrNotFound = eris.New("store: catalog not found")

// Summary is one row of a catalog listing.
type Summary struct {
	Slug        string    `json:"slug"`
	Restaurant  string    `json:"restaurant"`
	MenuURL     string    `json:"menu_url"`
	RunID       string    `json:"run_id"`
	TotalItems  int       `json:"total_items"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Store defines catalog persistence.
type Store interface {
	// UpsertCatalog deletes the categories and items stored for c.Slug and
	// inserts c's. Item rows that fail to insert are logged and skipped.
	UpsertCatalog(ctx context.Context, c *model.Catalog) error
	GetCatalog(ctx context.Context, slug string) (*model.Catalog, error)
	ListCatalogs(ctx context.Context) ([]Summary, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

type categoryRow struct {
	id         string
	name       string
	parentMenu string
	position   int
}

type itemRow struct {
	id          string
	categoryID  string
	name        string
	price       float64
	description string
	source      string
	unit        string
	position    int
}

// flatten assigns row IDs and positions to a catalog's categories and items.
func flatten(c *model.Catalog) ([]categoryRow, []itemRow) {
	cats := make([]categoryRow, 0, len(c.Categories))
	var items []itemRow
	for ci, cat := range c.Categories {
		row := categoryRow{
			id:         uuid.NewString(),
			name:       cat.Name,
			parentMenu: cat.ParentMenu,
			position:   ci,
		}
		cats = append(cats, row)
		for ii, it := range cat.Items {
			items = append(items, itemRow{
				id:          uuid.NewString(),
				categoryID:  row.id,
				name:        it.Name,
				price:       it.Price,
				description: it.Description,
				source:      string(it.Source),
				unit:        it.Unit,
				position:    ii,
			})
		}
	}
	return cats, items
}

// assemble rebuilds categories from rows ordered by position. Categories
// left without items are dropped.
func assemble(cats []categoryRow, items []itemRow) []model.Category {
	index := make(map[string]int, len(cats))
	out := make([]model.Category, len(cats))
	for i, row := range cats {
		index[row.id] = i
		out[i] = model.Category{Name: row.name, ParentMenu: row.parentMenu}
	}
	for _, row := range items {
		i, ok := index[row.categoryID]
		if !ok {
			continue
		}
		out[i].Items = append(out[i].Items, model.MenuItem{
			Name:        row.name,
			Price:       row.price,
			Category:    out[i].Name,
			Description: row.description,
			ParentMenu:  out[i].ParentMenu,
			Source:      model.Strategy(row.source),
			Unit:        row.unit,
		})
	}
	kept := out[:0]
	for _, cat := range out {
		if len(cat.Items) > 0 {
			kept = append(kept, cat)
		}
	}
	return kept
}
