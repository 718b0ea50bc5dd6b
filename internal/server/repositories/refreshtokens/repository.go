// Package refreshtokens declares the repository contract for the opaque
// refresh tokens handed out alongside access tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dirauth/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a
	// non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteForUser revokes every refresh token of userID.
	DeleteForUser(ctx context.Context, userID string) error
}
