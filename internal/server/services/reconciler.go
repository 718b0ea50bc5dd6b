package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dirauth/internal/dbx"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/dmitrijs2005/dirauth/internal/server/directory"
	"github.com/dmitrijs2005/dirauth/internal/server/events"
	"github.com/dmitrijs2005/dirauth/internal/server/models"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/dirauth/internal/server/slug"
)

// Reconciler maps a directory identity to exactly one local account.
type Reconciler interface {
	Reconcile(ctx context.Context, id directory.Identity) (*models.User, error)
}

// IdentityReconciler matches, creates and syncs accounts for directory
// identities. Each Reconcile call is a single transaction: it either returns
// an existing account (possibly with its profile updated) or creates exactly
// one new account.
type IdentityReconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sink        events.RegistrationSink
	strictEmail bool
}

func NewIdentityReconciler(db *sql.DB, m repomanager.RepositoryManager, sink events.RegistrationSink, cfg *config.Config) *IdentityReconciler {
	if sink == nil {
		sink = events.Nop{}
	}
	return &IdentityReconciler{
		db:          db,
		repomanager: m,
		sink:        sink,
		strictEmail: cfg.ReconcileStrictEmail,
	}
}

// Reconcile returns the account for id. A username taken by a concurrent
// creator surfaces as common.ErrUniqueViolation and nothing is written;
// several accounts differing only in username case yield
// common.ErrAmbiguousIdentity. The registration event for a new account is
// emitted once the transaction has committed.
func (r *IdentityReconciler) Reconcile(ctx context.Context, id directory.Identity) (*models.User, error) {
	var created bool
	user, err := dbx.InTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		repo := r.repomanager.Users(tx)

		user, err := r.match(ctx, repo, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			created = true
			return r.register(ctx, repo, id)
		}
		return r.sync(ctx, repo, user, id)
	})
	if err != nil {
		return nil, err
	}

	if created {
		r.sink.UserRegistered(ctx, user)
	}
	return user, nil
}

// match looks the principal up exactly, then ignoring case. A principal
// that is not usable as a username verbatim is also looked up under the
// name a previous login would have created for it.
func (r *IdentityReconciler) match(ctx context.Context, repo users.Repository, id directory.Identity) (*models.User, error) {
	user, err := repo.FindByUsername(ctx, id.Principal)
	if err != nil {
		return nil, fmt.Errorf("error searching user %q: %w", id.Principal, err)
	}
	if user != nil {
		return user, nil
	}

	user, err = r.foldMatch(ctx, repo, id.Principal, id)
	if err != nil || user != nil {
		return user, err
	}

	if derived := slug.Username(id.Principal); derived != "" && derived != id.Principal {
		return r.foldMatch(ctx, repo, derived, id)
	}
	return nil, nil
}

func (r *IdentityReconciler) foldMatch(ctx context.Context, repo users.Repository, username string, id directory.Identity) (*models.User, error) {
	user, err := repo.FindByUsernameFold(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error searching user %q: %w", username, err)
	}
	if user == nil {
		return nil, nil
	}

	// A case-only username match is accepted only when the directory email
	// is known locally. In strict mode it must be this account's email.
	if r.strictEmail {
		if !strings.EqualFold(user.Email, id.Email) {
			return nil, nil
		}
		return user, nil
	}

	owner, err := repo.FindByEmailFold(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("error searching email %q: %w", id.Email, err)
	}
	if owner == nil {
		return nil, nil
	}
	return user, nil
}

func (r *IdentityReconciler) register(ctx context.Context, repo users.Repository, id directory.Identity) (*models.User, error) {
	username, err := slug.Unique(ctx, id.Principal, repo.UsernameExistsFold)
	if err != nil {
		return nil, fmt.Errorf("error choosing username for %q: %w", id.Principal, err)
	}

	user, err := repo.Create(ctx, &models.User{
		UserName: username,
		Email:    id.Email,
		FullName: id.FullName,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

func (r *IdentityReconciler) sync(ctx context.Context, repo users.Repository, user *models.User, id directory.Identity) (*models.User, error) {
	if user.Email == id.Email && user.FullName == id.FullName {
		return user, nil
	}

	if err := repo.UpdateProfile(ctx, user.ID, id.Email, id.FullName); err != nil {
		return nil, fmt.Errorf("error updating user %q: %w", user.UserName, err)
	}
	return repo.GetByID(ctx, user.ID)
}
