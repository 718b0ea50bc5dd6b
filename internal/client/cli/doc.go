// Package cli provides the interactive dirauth command-line client.
//
// It wires configuration and the gRPC client into a small REPL: prompt for
// credentials, start a background connectivity watcher, and execute user
// commands (login, register, whoami, refresh, passwd, ping, logout). When both the directory
// and the local login reject the credentials, the reason reported for each
// method is printed on its own line.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
