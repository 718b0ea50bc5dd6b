// Package users provides the account store used by identity reconciliation
// and local login. Implementations are bound to a dbx.DBTX so every call can
// take part in the caller's transaction.
package users

import (
	"context"

	"github.com/dmitrijs2005/dirauth/internal/server/models"
)

// Repository is the account store.
//
// Find* lookups return (nil, nil) when nothing matches; absence is an
// ordinary outcome for them, not an error.
type Repository interface {
	// Create inserts user and fills in ID and CreatedAt. A username that is
	// already taken yields an error matching common.ErrUniqueViolation.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns common.ErrorNotFound when the account does not exist.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// FindByUsername matches the username exactly (case-sensitive).
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByUsernameFold matches the username ignoring case. More than one
	// match yields common.ErrAmbiguousIdentity.
	FindByUsernameFold(ctx context.Context, username string) (*models.User, error)

	// FindByEmailFold returns the oldest account whose email matches
	// ignoring case.
	FindByEmailFold(ctx context.Context, email string) (*models.User, error)

	// UsernameExistsFold reports whether any account has username under any
	// casing.
	UsernameExistsFold(ctx context.Context, username string) (bool, error)

	// UpdateProfile writes email and full name in a single statement.
	UpdateProfile(ctx context.Context, id, email, fullName string) error

	// SetPasswordHash replaces the stored local password hash.
	SetPasswordHash(ctx context.Context, id, hash string) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, username, email, full_name, password_hash, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
