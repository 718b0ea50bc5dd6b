package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/google/uuid"
)

// SQLiteRepository is the single-node store. IDs are generated client-side.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, username, email, full_name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	if _, err := r.db.ExecContext(ctx, query,
		id, user.UserName, user.Email, user.FullName, user.PasswordHash, createdAt); err != nil {
		return nil, createError(user.UserName, err)
	}

	user.ID = id
	user.CreatedAt = createdAt
	return user, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *SQLiteRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return findOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *SQLiteRepository) FindByUsernameFold(ctx context.Context, username string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(username) = lower(?)
		 ORDER BY created_at, id
		 LIMIT 2`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return findUnique(rows)
}

func (r *SQLiteRepository) FindByEmailFold(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(email) = lower(?)
		 ORDER BY created_at, id
		 LIMIT 1`
	return findOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLiteRepository) UsernameExistsFold(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower(?))`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, id, email, fullName string) error {
	query := `UPDATE users SET email = ?, full_name = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, email, fullName, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}
