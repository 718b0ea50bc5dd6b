// Package directory authenticates credentials against an LDAP directory and
// returns the identity it asserts.
package directory

import (
	"context"
)

// Identity is what the directory vouches for after a successful bind.
type Identity struct {
	Principal string
	Email     string
	FullName  string
}

// Client verifies a login (username, email or any configured search
// attribute) and password. Failures are *auth.DirectoryAuthError.
type Client interface {
	Authenticate(ctx context.Context, login, password string) (*Identity, error)
}
