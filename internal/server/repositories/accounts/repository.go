// Package accounts stores user accounts (the users table).
package accounts

import (
	"context"

	"github.com/dmitrijs2005/diagnexus/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	SoftDelete(ctx context.Context, id int64, updatedBy int64) error
	Count(ctx context.Context) (int64, error)
}
