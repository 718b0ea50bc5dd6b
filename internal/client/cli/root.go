package cli

import (
	"context"
	"fmt"
	"log"
	"strings"
)

func (a *App) getStatus() string {
	var parts []string
	if u := a.currentUser(); u != nil && a.isLoggedIn() {
		parts = append(parts, u.Username)
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

// Root prompts for a login, starts the connectivity watcher and runs the
// REPL until the user exits or ctx is cancelled.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to dirauth CLI (type 'help' for commands)")

	_ = a.Login(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
