package services

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
)

// classify turns a repository or storage error into one that carries a
// service-level sentinel, keeping the cause for logs.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorConflict),
		errors.Is(err, common.ErrorServiceUnavailable),
		errors.Is(err, common.ErrorEmptyObject):
		return fmt.Errorf("%s: %w", op, err)
	case dbx.IsUnavailable(err):
		return fmt.Errorf("%w: %s: %w", common.ErrorServiceUnavailable, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", common.ErrorInternal, op, err)
	}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorInvalidInput, msg)
}

// requireRole fails with ErrorUnauthorized for a missing actor and
// ErrorForbidden when the actor's role is not listed.
func requireRole(actor *models.Account, roles ...models.Role) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	if slices.Contains(roles, actor.Role) {
		return nil
	}
	return common.ErrorForbidden
}
