// Package cli is the interactive FoodHub command-line client.
//
// It wires configuration and the HTTP API client into a small REPL:
// register, login or start a guest session, inspect the current identity,
// upload product media through a presigned URL, rotate tokens and log out.
// The REPL is started with App.Run and blocks until the user exits or stdin
// is closed.
package cli
