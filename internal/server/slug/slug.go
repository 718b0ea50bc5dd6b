// Package slug derives account usernames from directory principals.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a principal has no usable characters.
const Fallback = "user"

// punct lists the non-alphanumeric characters a username may hold.
const punct = "._-@+"

func allowed(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(punct, r)
}

// Valid reports whether s can be stored as a username unchanged: letters
// (any script, combining marks included), digits and "._-@+", with at least
// one letter or digit.
func Valid(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	alnum := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			alnum = true
		case unicode.IsMark(r), strings.ContainsRune(punct, r):
		default:
			return false
		}
	}
	return alnum
}

// Username is the account name a principal maps to: the principal itself
// when it is Valid, its Slugify form otherwise.
func Username(principal string) string {
	if Valid(principal) {
		return principal
	}
	return Slugify(principal)
}

// Slugify lowercases s, strips diacritics and keeps letters, digits and
// "._-@+". Whitespace runs become a single "-".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case allowed(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// ExistsFunc reports whether a username is taken under any casing.
type ExistsFunc func(ctx context.Context, username string) (bool, error)

// Unique returns Username(base), or the first of name-2, name-3, ... that
// exists reports as free.
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := Username(base)
	if candidate == "" {
		candidate = Fallback
	}

	stem := candidate
	for n := 2; ; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", stem, n)
	}
}
