package refreshtokens

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
)

const tokenColumns = `id, user_id, token, expires_at, created_at`

func scanToken(row *sql.Row) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{}
	if err := row.Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.Expires, &rt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

// execError wraps a write failure. A duplicate token matches
// common.ErrUniqueViolation.
func execError(err error) error {
	switch {
	case err == nil:
		return nil
	case dbx.IsUniqueViolation(err):
		return fmt.Errorf("refresh token: %w (%v)", common.ErrUniqueViolation, err)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
