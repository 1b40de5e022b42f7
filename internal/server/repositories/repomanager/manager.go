package repomanager

import (
	"context"
	"database/sql"

	"github.com/axiscapital/vault/internal/dbx"
	"github.com/axiscapital/vault/internal/server/repositories/identities"
)

// RepositoryManager vends repositories bound to a DB handle or transaction
// and owns the schema migrations.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	MigrationStatus(ctx context.Context, db *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
}
