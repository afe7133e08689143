package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/diagnexus/internal/dbx"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/reports"
	"github.com/dmitrijs2005/diagnexus/internal/server/repositories/sessions"
)

// RepositoryManager hands out repositories bound to a DBTX, so the same
// service code runs inside or outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Reports(db dbx.DBTX) reports.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
