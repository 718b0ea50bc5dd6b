package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestUp_SQLiteCreatesTables(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Up(ctx, db, "sqlite"))
	// second run is a no-op
	require.NoError(t, Up(ctx, db, "sqlite"))

	for _, table := range []string{"users", "refresh_tokens"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s must exist", table)
	}
}

func TestUp_UnknownDriver(t *testing.T) {
	require.Error(t, Up(context.Background(), nil, "mysql"))
}
