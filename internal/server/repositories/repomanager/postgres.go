package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/users"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// RunMigrations applies the embedded PostgreSQL migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, config.DriverPostgres)
}
