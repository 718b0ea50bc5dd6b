package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dirauth/internal/server/auth"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/dmitrijs2005/dirauth/internal/server/directory"
)

// Fallback selects what happens after the directory rejects a login.
type Fallback int

const (
	// FallbackNone returns the directory error as is.
	FallbackNone Fallback = iota
	// FallbackLocal retries with the local password login.
	FallbackLocal
)

func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "none"
	case FallbackLocal:
		return auth.MethodLocal
	default:
		return fmt.Sprintf("Fallback(%d)", int(f))
	}
}

// ParseFallback maps the configured fallback method name to a strategy.
// An empty name disables the fallback; "normal" is accepted for "local".
func ParseFallback(name string) (Fallback, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return FallbackNone, nil
	case auth.MethodLocal, "normal":
		return FallbackLocal, nil
	default:
		return FallbackNone, fmt.Errorf("unknown fallback method %q", name)
	}
}

// LocalLogin is the fallback login method.
type LocalLogin interface {
	Login(ctx context.Context, req LoginRequest) (*Session, error)
}

// AuthDispatcher runs the directory login and, when configured, the local
// login as a fallback.
type AuthDispatcher struct {
	directory  directory.Client
	reconciler Reconciler
	sessions   SessionIssuer
	local      LocalLogin
	fallback   Fallback
}

func NewAuthDispatcher(cfg *config.Config, dir directory.Client, rec Reconciler, sessions SessionIssuer, local LocalLogin) (*AuthDispatcher, error) {
	fallback, err := ParseFallback(cfg.FallbackMethod)
	if err != nil {
		return nil, err
	}
	if fallback == FallbackLocal && local == nil {
		return nil, errors.New("local fallback configured without a local login")
	}
	return &AuthDispatcher{
		directory:  dir,
		reconciler: rec,
		sessions:   sessions,
		local:      local,
		fallback:   fallback,
	}, nil
}

func (d *AuthDispatcher) Fallback() Fallback { return d.fallback }

// Login returns a session on success. When the directory fails it returns
// the directory error unchanged (no fallback), the local session, or a
// *auth.MergedAuthError carrying both methods' messages.
func (d *AuthDispatcher) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	id, dirErr := d.directory.Authenticate(ctx, req.Username, req.Password)
	if dirErr == nil {
		user, err := d.reconciler.Reconcile(ctx, *id)
		if err != nil {
			return nil, err
		}
		return d.sessions.Issue(ctx, user)
	}

	if d.fallback == FallbackNone {
		return nil, dirErr
	}

	session, localErr := d.local.Login(ctx, req)
	if localErr == nil {
		return session, nil
	}

	return nil, &auth.MergedAuthError{Errors: map[string]string{
		auth.MethodDirectory: directoryMessage(dirErr),
		auth.MethodLocal:     localMessage(localErr),
	}}
}

func directoryMessage(err error) string {
	var de *auth.DirectoryAuthError
	if errors.As(err, &de) {
		return de.ErrorMessage
	}
	return "Directory login failed."
}

func localMessage(err error) string {
	var le *auth.LocalAuthError
	if errors.As(err, &le) {
		return le.Detail
	}
	return DetailUnavailable
}
