package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesTables(t *testing.T) {
	db := setupDB(t)
	assert.True(t, tableExists(t, db, "goose_db_version"))
	assert.True(t, tableExists(t, db, "downloads"))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))
	assert.True(t, tableExists(t, db, "downloads"))
}

func TestRecordAndList_NewestFirst(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	base := time.UnixMilli(1700000000000)

	_, err := r.Record(ctx, models.HistoryItem{ReportID: 1, Name: "old", LocalPath: "/tmp/a", Size: 3, DownloadedAt: base})
	require.NoError(t, err)
	id, err := r.Record(ctx, models.HistoryItem{ReportID: 2, Name: "new", LocalPath: "/tmp/b", Size: 5, DownloadedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Positive(t, id)

	items, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].Name)
	assert.Equal(t, int64(2), items[0].ReportID)
	assert.Equal(t, int64(5), items[0].Size)
	assert.True(t, base.Add(time.Minute).Equal(items[0].DownloadedAt))
	assert.Equal(t, "old", items[1].Name)

	items, err = r.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].Name)
}

func TestRecord_DefaultsTimestamp(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	_, err := r.Record(ctx, models.HistoryItem{ReportID: 1, Name: "n", LocalPath: "p"})
	require.NoError(t, err)

	items, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].DownloadedAt.After(before))
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := r.Record(ctx, models.HistoryItem{ReportID: 1, Name: "n", LocalPath: "p"})
	require.NoError(t, err)
	require.NoError(t, r.Clear(ctx))

	items, err := r.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRepository_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Record(ctx, models.HistoryItem{ReportID: 4})
	require.ErrorContains(t, err, "failed to record download of report 4")

	_, err = r.List(ctx, 0)
	require.ErrorContains(t, err, "failed to list downloads")

	require.ErrorContains(t, r.Clear(ctx), "failed to clear downloads")
}
