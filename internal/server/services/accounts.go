package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/auth"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/dmitrijs2005/dirauth/internal/server/events"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dirauth/internal/server/slug"
)

// MinPasswordLength is the shortest password accepted for a local account.
const MinPasswordLength = 8

// RegisterRequest describes a local-only account.
type RegisterRequest struct {
	Username string
	Email    string
	FullName string
	Password string
}

// AccountService manages local accounts: the ones that log in through the
// local fallback with a stored bcrypt hash.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sink        events.RegistrationSink
	enabled     bool
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, sink events.RegistrationSink, cfg *config.Config) *AccountService {
	if sink == nil {
		sink = events.Nop{}
	}
	return &AccountService{
		db:          db,
		repomanager: m,
		sink:        sink,
		enabled:     cfg.AllowRegistration,
	}
}

// Register creates a local account with a hashed password. Usernames are
// unique ignoring case, so "Alice" is refused while "alice" exists; that
// refusal matches common.ErrUniqueViolation.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if !s.enabled {
		return nil, common.ErrRegistrationDisabled
	}
	if !slug.Valid(req.Username) {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidUsername, req.Username)
	}
	hash, err := hashNewPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		repo := s.repomanager.Users(tx)

		taken, err := repo.UsernameExistsFold(ctx, req.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("username %q: %w", req.Username, common.ErrUniqueViolation)
		}
		return repo.Create(ctx, &models.User{
			UserName:     req.Username,
			Email:        req.Email,
			FullName:     req.FullName,
			PasswordHash: hash,
		})
	})
	if err != nil {
		return nil, err
	}

	s.sink.UserRegistered(ctx, user)
	return user, nil
}

// SetPassword replaces the local password of an existing account and
// revokes its refresh tokens. A directory-created account gains a local
// login this way.
func (s *AccountService) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := hashNewPassword(password)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).SetPasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).DeleteForUser(ctx, userID)
	})
}

func hashNewPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: need at least %d characters", common.ErrWeakPassword, MinPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
