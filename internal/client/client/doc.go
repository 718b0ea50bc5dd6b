// Package client is the CLI side of the dirauth gRPC API.
//
// GRPCClient keeps the session tokens returned by Login, attaches the access
// token to every call through a unary interceptor and, when the server
// answers "token expired", rotates the pair with RefreshToken and retries
// the call once.
//
// Failures are mapped to sentinel errors (ErrUnavailable, ErrUnauthorized,
// ErrConflict) matched with errors.Is. A rejected login is a *LoginError
// carrying the per-method messages from the status detail, so the caller
// can show why the directory and the local login each failed.
package client
