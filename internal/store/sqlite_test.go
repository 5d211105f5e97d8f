package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	want := sampleCatalog()

	require.NoError(t, st.UpsertCatalog(ctx, want))

	got, err := st.GetCatalog(ctx, "kose-kafe")
	require.NoError(t, err)
	assert.Equal(t, want.Restaurant, got.Restaurant)
	assert.Equal(t, want.MenuURL, got.MenuURL)
	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, want.ExtractedAt.Equal(got.ExtractedAt), "extracted_at %v", got.ExtractedAt)
	assert.Equal(t, want.Categories, got.Categories)
	assert.Equal(t, want.Units, got.Units)
	assert.Equal(t, want.Usage, got.Usage)
	assert.Equal(t, 3, got.TotalItems())
}

func TestSQLite_UpsertReplacesPriorData(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertCatalog(ctx, sampleCatalog()))

	next := sampleCatalog()
	next.RunID = "run-2"
	next.Categories = []model.Category{
		{Name: "Tatlılar", Items: []model.MenuItem{{Name: "Künefe", Price: 140, Category: "Tatlılar"}}},
	}
	require.NoError(t, st.UpsertCatalog(ctx, next))

	got, err := st.GetCatalog(ctx, "kose-kafe")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Künefe", got.Categories[0].Items[0].Name)

	var items, cats int
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&items))
	require.NoError(t, st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_categories`).Scan(&cats))
	assert.Equal(t, 1, items)
	assert.Equal(t, 1, cats)
}

func TestSQLite_UpsertKeepsOtherSlugs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	other := sampleCatalog()
	other.Slug = "deniz-restoran"
	other.Restaurant = "Deniz Restoran"
	require.NoError(t, st.UpsertCatalog(ctx, other))
	require.NoError(t, st.UpsertCatalog(ctx, sampleCatalog()))
	require.NoError(t, st.UpsertCatalog(ctx, sampleCatalog()))

	got, err := st.GetCatalog(ctx, "deniz-restoran")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalItems())

	list, err := st.ListCatalogs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "deniz-restoran", list[0].Slug)
	assert.Equal(t, "kose-kafe", list[1].Slug)
	assert.Equal(t, 3, list[1].TotalItems)
}

func TestSQLite_GetCatalog_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetCatalog(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpsertCatalog_RequiresSlug(t *testing.T) {
	st := newTestSQLiteStore(t)
	c := sampleCatalog()
	c.Slug = ""

	err := st.UpsertCatalog(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slug is required")
}

func TestSQLite_ListCatalogs_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	list, err := st.ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}
