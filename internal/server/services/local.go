package services

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/dirauth/internal/server/auth"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/repomanager"
)

// LoginRequest is the raw login input. Username may hold any identifier the
// method understands: a username, an email, or another directory attribute.
type LoginRequest struct {
	Username string
	Password string
}

const (
	DetailMissingCredentials = "Username and password are required."
	DetailBadCredentials     = "Username or password does not match any user."
	DetailUnavailable        = "Login is temporarily unavailable."
)

// LocalAuthenticator checks a password against the bcrypt hash stored on the
// account. Credential failures are *auth.LocalAuthError.
type LocalAuthenticator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    SessionIssuer
}

func NewLocalAuthenticator(db *sql.DB, m repomanager.RepositoryManager, sessions SessionIssuer) *LocalAuthenticator {
	return &LocalAuthenticator{db: db, repomanager: m, sessions: sessions}
}

// Login matches the exact username first, then the email ignoring case.
func (a *LocalAuthenticator) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if req.Username == "" || req.Password == "" {
		return nil, &auth.LocalAuthError{Detail: DetailMissingCredentials}
	}

	user, err := a.lookup(ctx, req.Username)
	if err != nil {
		return nil, &auth.LocalAuthError{Detail: DetailUnavailable, Err: err}
	}

	if user == nil {
		// same bcrypt cost as the found-account path
		auth.CheckPassword(dummyHash(), req.Password)
		return nil, &auth.LocalAuthError{Detail: DetailBadCredentials}
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, &auth.LocalAuthError{Detail: DetailBadCredentials}
	}

	return a.sessions.Issue(ctx, user)
}

func (a *LocalAuthenticator) lookup(ctx context.Context, login string) (*models.User, error) {
	repo := a.repomanager.Users(a.db)

	user, err := repo.FindByUsername(ctx, login)
	if err != nil || user != nil {
		return user, err
	}
	return repo.FindByEmailFold(ctx, login)
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("dirauth-timing-equaliser")
	return h
})
