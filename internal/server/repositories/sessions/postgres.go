package sessions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts s, assigning a random ID when s.ID is empty.
func (r *PostgresRepository) Create(ctx context.Context, s *models.SessionLog) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO sessions (session_id, user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	if err := r.db.QueryRowContext(ctx, query, s.ID, s.AccountID, s.TokenHash, s.ExpiresAt).Scan(&s.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
