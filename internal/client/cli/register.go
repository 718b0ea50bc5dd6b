package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dirauth/internal/client/client"
	"github.com/dmitrijs2005/dirauth/internal/common"
	"github.com/dmitrijs2005/dirauth/internal/rpc/authv1"
)

var errPasswordMismatch = errors.New("passwords do not match")

// Register prompts for a new local account and creates it on the server.
// The account logs in through the local fallback; it does not log in here.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email (optional)", a.out)
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Enter full name (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	user, err := a.client.Register(ctx, authv1.User{Username: userName, Email: email, FullName: fullName}, string(password))
	if err != nil {
		a.printAccountError("Registration failed", err)
		return err
	}

	fmt.Fprintf(a.out, "Success! Registered %s, you can now log in\n", user.Username)
	return nil
}

// Passwd changes the local password of the logged-in account. The server
// revokes the session, so the CLI logs out as well.
func (a *App) Passwd(ctx context.Context) error {
	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.SetPassword(ctx, string(password)); err != nil {
		a.printAccountError("Password change failed", err)
		return err
	}

	a.client.Logout()
	a.setUser(nil)
	fmt.Fprintln(a.out, "Password changed, please log in again")
	return nil
}

// newPassword reads a password twice and returns it when both match.
func (a *App) newPassword() ([]byte, error) {
	password, err := getPassword(a.out)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(a.out, "Repeat the password")
	again, err := getPassword(a.out)
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(password, again) {
		common.WipeByteArray(password)
		fmt.Fprintln(a.out, "Passwords do not match")
		return nil, errPasswordMismatch
	}
	return password, nil
}

func (a *App) printAccountError(prefix string, err error) {
	switch {
	case errors.Is(err, client.ErrUserExists):
		fmt.Fprintf(a.out, "%s: username is taken\n", prefix)
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		fmt.Fprintln(a.out, "Server unavailable")
	default:
		fmt.Fprintf(a.out, "%s: %s\n", prefix, err)
	}
}
