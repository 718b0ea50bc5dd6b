package users

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
)

func createError(username string, err error) error {
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("username %q: %w (%v)", username, common.ErrUniqueViolation, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func findOne(row *sql.Row) (*models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// findUnique consumes rows and returns the only user, nil when there is
// none, or common.ErrAmbiguousIdentity when there are several.
func findUnique(rows *sql.Rows) (*models.User, error) {
	defer rows.Close()

	var found *models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if found != nil {
			return nil, common.ErrAmbiguousIdentity
		}
		found = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
