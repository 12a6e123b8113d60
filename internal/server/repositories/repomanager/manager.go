// Package repomanager defines the RepositoryManager contract: a factory that
// vends repositories bound to a DBTX, so services can run several repository
// calls inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/vettta06/devteam-ai/internal/dbx"
	"github.com/vettta06/devteam-ai/internal/server/repositories/refreshtokens"
	"github.com/vettta06/devteam-ai/internal/server/repositories/tasks"
	"github.com/vettta06/devteam-ai/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Tasks(db dbx.DBTX) tasks.Repository
}
