// Package history keeps a local SQLite log of reports the CLI has saved to
// disk.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/client/history/migrations"
	"github.com/dmitrijs2005/diagnexus/internal/client/models"
	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repository records and lists downloads.
type Repository interface {
	Record(ctx context.Context, item models.HistoryItem) (int64, error)
	List(ctx context.Context, limit int) ([]models.HistoryItem, error)
	Clear(ctx context.Context) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Record(ctx context.Context, item models.HistoryItem) (int64, error) {
	if item.DownloadedAt.IsZero() {
		item.DownloadedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads (report_id, name, local_path, size, downloaded_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.ReportID, item.Name, item.LocalPath, item.Size, item.DownloadedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to record download of report %d: %w", item.ReportID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read download id: %w", err)
	}
	return id, nil
}

// List returns the newest downloads first. A non-positive limit means all.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.HistoryItem, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, report_id, name, local_path, size, downloaded_at
		FROM downloads
		ORDER BY downloaded_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryItem
	for rows.Next() {
		var it models.HistoryItem
		var ms int64
		if err := rows.Scan(&it.ID, &it.ReportID, &it.Name, &it.LocalPath, &it.Size, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		it.DownloadedAt = time.UnixMilli(ms)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate download rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM downloads`); err != nil {
		return fmt.Errorf("failed to clear downloads: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite file at dsn and migrates it. The caller
// owns the returned *sql.DB.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
