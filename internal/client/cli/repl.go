package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Ping(ctx context.Context) error
	Logout(ctx context.Context) error
	Register(ctx context.Context) error
	Passwd(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
//	Not logged in:
//	  - help           show available commands
//	  - login          authenticate
//	  - register       create a local account
//	  - ping           check the server
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - help           show available commands
//	  - whoami         show the current account
//	  - refresh        rotate the session tokens
//	  - passwd         set the local password
//	  - ping           check the server
//	  - logout         forget the session
//	  - exit | quit    leave the program
//
// Command errors are reported by the handlers themselves and do not stop
// the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "dirauth %s> ", statusFn())
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: whoami, refresh, passwd, ping, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: login, register, ping, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "register":
			_ = a.Register(ctx)

		case "passwd":
			if !a.isLoggedIn() {
				fmt.Fprintln(w, "Please login first")
				continue
			}
			_ = a.Passwd(ctx)

		case "whoami":
			if !a.isLoggedIn() {
				fmt.Fprintln(w, "Please login first")
				continue
			}
			_ = a.WhoAmI(ctx)

		case "refresh":
			if !a.isLoggedIn() {
				fmt.Fprintln(w, "Please login first")
				continue
			}
			_ = a.Refresh(ctx)

		case "ping":
			_ = a.Ping(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
