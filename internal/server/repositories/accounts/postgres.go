package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
)

const selectColumns = `user_id, role, name, email, password_hash, is_active, updated_by, updated_date, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*models.Account, error) {
	var (
		a         models.Account
		role      string
		updatedBy sql.NullInt64
	)
	if err := s.Scan(&a.ID, &role, &a.Name, &a.Email, &a.PasswordHash, &a.IsActive, &updatedBy, &a.UpdatedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	if updatedBy.Valid {
		a.UpdatedBy = &updatedBy.Int64
	}
	return &a, nil
}

func wrapWriteError(err error) error {
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("%w: email already in use", common.ErrorConflict)
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO users (role, name, email, password_hash, is_active, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING user_id, updated_date, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		string(account.Role), account.Name, account.Email, account.PasswordHash, account.IsActive, account.UpdatedBy,
	).Scan(&account.ID, &account.UpdatedAt, &account.CreatedAt)

	if err != nil {
		return nil, wrapWriteError(err)
	}

	return account, nil
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE ` + where

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// GetByID returns the account regardless of its active flag.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.get(ctx, `user_id = $1`, id)
}

// GetByEmail expects an already normalized (lowercase) email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.get(ctx, `email = $1`, email)
}

// List returns active accounts, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE is_active = true ORDER BY created_at DESC, user_id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, account *models.Account) error {
	query :=
		`UPDATE users
		 SET role = $1, name = $2, email = $3, password_hash = $4, is_active = $5, updated_by = $6, updated_date = now()
		 WHERE user_id = $7
		 `

	res, err := r.db.ExecContext(ctx, query,
		string(account.Role), account.Name, account.Email, account.PasswordHash, account.IsActive, account.UpdatedBy, account.ID)
	if err != nil {
		return wrapWriteError(err)
	}

	return checkAffected(res)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64, updatedBy int64) error {
	query :=
		`UPDATE users
		 SET is_active = false, updated_by = $1, updated_date = now()
		 WHERE user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, updatedBy, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
