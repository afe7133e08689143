// Package sessions appends rows to the sessions activity log.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/diagnexus/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.SessionLog) error
}
