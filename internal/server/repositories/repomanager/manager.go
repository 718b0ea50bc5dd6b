// Package repomanager vends repository implementations for the configured
// database driver and applies its schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/dmitrijs2005/dirauth/internal/server/migrations"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}

// migrateUp is a seam for testing migrations.Up.
var migrateUp = migrations.Up

// New returns the manager for driver (config.DriverPostgres or
// config.DriverSQLite).
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case config.DriverPostgres:
		return &PostgresRepositoryManager{}, nil
	case config.DriverSQLite:
		return &SQLiteRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open opens a connection pool for driver. SQLite connections take the
// write lock when a transaction begins and wait on a busy database, so
// concurrent reconciliations of one principal serialise instead of failing.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case config.DriverPostgres:
		return sql.Open("pgx", dsn)
	case config.DriverSQLite:
		return sql.Open("sqlite", sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func sqliteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_txlock=") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
