package auth

import (
	"sort"
	"strings"
)

// Login method names, also used as keys of MergedAuthError.Errors.
const (
	MethodDirectory = "directory"
	MethodLocal     = "local"
)

// DirectoryAuthError is returned when the directory rejects a login or
// cannot be reached.
type DirectoryAuthError struct {
	ErrorMessage string
	Err          error
}

func (e *DirectoryAuthError) Error() string { return e.ErrorMessage }
func (e *DirectoryAuthError) Unwrap() error { return e.Err }

// LocalAuthError is returned by the local password login.
type LocalAuthError struct {
	Detail string
	Err    error
}

func (e *LocalAuthError) Error() string { return e.Detail }
func (e *LocalAuthError) Unwrap() error { return e.Err }

// MergedAuthError reports that every login method failed. Errors maps the
// method name to its human-readable message.
type MergedAuthError struct {
	Errors map[string]string
}

func (e *MergedAuthError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Errors[k])
	}
	return "all login methods failed (" + strings.Join(parts, "; ") + ")"
}
