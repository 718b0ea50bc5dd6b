package client

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrConflict     = errors.New("account was created concurrently, retry")
	ErrUserExists   = errors.New("username is taken")
	ErrInvalidInput = errors.New("invalid input")
)

// LoginError is a rejected login. Messages holds the server's reason per
// login method ("directory", "local"); a reason not tied to a method is
// stored under "".
type LoginError struct {
	Messages map[string]string
}

func (e *LoginError) Error() string {
	if msg, ok := e.Messages[""]; ok && len(e.Messages) == 1 {
		return msg
	}
	keys := make([]string, 0, len(e.Messages))
	for k := range e.Messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Messages[k])
	}
	return strings.Join(parts, "; ")
}

func (e *LoginError) Unwrap() error { return ErrUnauthorized }
