package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/dirauth/internal/client/client"
	"github.com/dmitrijs2005/dirauth/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for a username and password and authenticates. A rejected
// login prints the reason given for each login method.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username or email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	user, err := a.client.Login(ctx, userName, string(password))
	if err != nil {
		a.printLoginError(err)
		return err
	}

	a.setUser(user)
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Logged in as %s\n", user.Username)
	return nil
}

func (a *App) printLoginError(err error) {
	var le *client.LoginError
	switch {
	case errors.As(err, &le) && len(le.Messages) > 1:
		fmt.Fprintln(a.out, "Login failed:")
		methods := make([]string, 0, len(le.Messages))
		for m := range le.Messages {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			fmt.Fprintf(a.out, "  %s: %s\n", m, le.Messages[m])
		}
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		fmt.Fprintln(a.out, "Server unavailable")
	case errors.Is(err, client.ErrConflict):
		fmt.Fprintln(a.out, "Login failed: account is being created by another session, try again")
	default:
		fmt.Fprintf(a.out, "Login failed: %s\n", err)
	}
}

// WhoAmI prints the account the server holds for the current session.
func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	user, err := a.client.WhoAmI(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "whoami failed: %s\n", err)
		return err
	}

	a.setUser(user)
	fmt.Fprintf(a.out, "id:        %s\nusername:  %s\nemail:     %s\nfull name: %s\n",
		user.ID, user.Username, user.Email, user.FullName)
	return nil
}

// Refresh rotates the session tokens.
func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Refresh(ctx); err != nil {
		fmt.Fprintf(a.out, "refresh failed: %s\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		fmt.Fprintf(a.out, "ping failed: %s\n", err)
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "OK")
	return nil
}

// Logout forgets the session locally.
func (a *App) Logout(ctx context.Context) error {
	a.client.Logout()
	a.setUser(nil)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
