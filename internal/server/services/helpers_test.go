package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
}

// newSQLiteDB opens a migrated SQLite file database the way the server does.
func newSQLiteDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	db, err := repomanager.Open(config.DriverSQLite, filepath.Join(t.TempDir(), "dirauth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := repomanager.New(config.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(context.Background(), db))
	return db, m
}

func seedUser(t *testing.T, db *sql.DB, m repomanager.RepositoryManager, u *models.User) *models.User {
	t.Helper()
	created, err := m.Users(db).Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func countUsers(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM users`).Scan(&n))
	return n
}

type recordingSink struct {
	mu    sync.Mutex
	users []*models.User
}

func (s *recordingSink) UserRegistered(_ context.Context, u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// countingManager wraps a real manager and counts user writes.
type countingManager struct {
	repomanager.RepositoryManager
	mu      sync.Mutex
	creates int
	updates int
}

func (m *countingManager) Users(db dbx.DBTX) users.Repository {
	return &countingUsers{Repository: m.RepositoryManager.Users(db), m: m}
}

func (m *countingManager) counts() (creates, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates, m.updates
}

type countingUsers struct {
	users.Repository
	m *countingManager
}

func (u *countingUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	u.m.mu.Lock()
	u.m.creates++
	u.m.mu.Unlock()
	return u.Repository.Create(ctx, user)
}

func (u *countingUsers) UpdateProfile(ctx context.Context, id, email, fullName string) error {
	u.m.mu.Lock()
	u.m.updates++
	u.m.mu.Unlock()
	return u.Repository.UpdateProfile(ctx, id, email, fullName)
}
