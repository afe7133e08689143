package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
)

const selectJoined = `SELECT r.report_id, r.user_id, r.name, r.file_path, r.file_size, r.file_type,
		COALESCE(r.comments, ''), r.updated_by, r.is_active, r.created_at, r.updated_date,
		u.name, ub.name
	 FROM reports r
	 JOIN users u ON u.user_id = r.user_id
	 JOIN users ub ON ub.user_id = r.updated_by
	 WHERE r.is_active = true`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*models.Report, error) {
	var r models.Report
	err := s.Scan(&r.ID, &r.OwnerID, &r.Name, &r.StorageKey, &r.Size, &r.ContentType,
		&r.Comment, &r.UpdatedBy, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
		&r.OwnerName, &r.UpdatedByName)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts the row for an object that has already been stored.
func (r *PostgresRepository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	query :=
		`INSERT INTO reports (user_id, name, file_path, file_size, file_type, comments, updated_by)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		 RETURNING report_id, is_active, created_at, updated_date
		 `

	err := r.db.QueryRowContext(ctx, query,
		report.OwnerID, report.Name, report.StorageKey, report.Size, report.ContentType, report.Comment, report.UpdatedBy,
	).Scan(&report.ID, &report.IsActive, &report.CreatedAt, &report.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: storage key in use", common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return report, nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, id int64) (*models.Report, error) {
	query := selectJoined + ` AND r.report_id = $1`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return report, nil
}

// List returns active reports, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]models.Report, error) {
	query := selectJoined
	args := []any{}
	if filter.OwnerID != nil {
		query += ` AND r.user_id = $1`
		args = append(args, *filter.OwnerID)
	}
	query += ` ORDER BY r.created_at DESC, r.report_id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64, updatedBy int64) error {
	query :=
		`UPDATE reports
		 SET is_active = false, updated_by = $1, updated_date = now()
		 WHERE report_id = $2 AND is_active = true
		 `

	res, err := r.db.ExecContext(ctx, query, updatedBy, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
