// Package reports stores report metadata (the reports table). Report bytes
// live in object storage; rows only reference them by storage key.
package reports

import (
	"context"

	"github.com/dmitrijs2005/diagnexus/internal/server/models"
)

// ListFilter narrows List. A nil OwnerID lists every owner.
type ListFilter struct {
	OwnerID *int64
}

type Repository interface {
	Create(ctx context.Context, report *models.Report) (*models.Report, error)
	GetActive(ctx context.Context, id int64) (*models.Report, error)
	List(ctx context.Context, filter ListFilter) ([]models.Report, error)
	SoftDelete(ctx context.Context, id int64, updatedBy int64) error
}
