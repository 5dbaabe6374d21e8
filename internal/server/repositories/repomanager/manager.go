// Package repomanager vends repositories bound to either the connection pool
// or a transaction, and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/foodhub/internal/dbx"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/invalidatedtokens"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	InvalidatedTokens(db dbx.DBTX) invalidatedtokens.Repository
}
