package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/foodhub/internal/client/api"
)

// execIface is the command surface the REPL dispatches to. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Guest(ctx context.Context) error
	Me(ctx context.Context) error
	Refresh(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	Logout(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it. It returns on EOF,
// "exit" or "quit". Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "foodhub %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			fmt.Fprintln(out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: me, upload <file>, refresh, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: register, login, guest, exit")
			}
		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "guest":
			cmdErr = a.Guest(ctx)
		case "me":
			cmdErr = a.Me(ctx)
		case "refresh":
			cmdErr = a.Refresh(ctx)
		case "upload":
			if len(args) != 1 {
				fmt.Fprintln(out, "usage: upload <file>")
				continue
			}
			cmdErr = a.Upload(ctx, args[0])
		case "logout":
			cmdErr = a.Logout(ctx)
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		default:
			fmt.Fprintf(out, "Unknown command: %s\n", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(out, describe(cmdErr))
		}

		if err != nil {
			return
		}
	}
}

// describe turns client errors into one-line messages for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, api.ErrNotLoggedIn):
		return "Not logged in. Use login, register or guest first."
	case errors.Is(err, api.ErrUnauthorized):
		return "Session expired or credentials rejected. Please log in again."
	case errors.Is(err, api.ErrForbidden):
		return "Not allowed for this account."
	case errors.Is(err, api.ErrConflict):
		return "An account with this email already exists."
	case errors.Is(err, api.ErrRateLimited):
		return "Too many attempts, try again in a minute."
	case errors.Is(err, api.ErrUnavailable):
		return "Server unavailable."
	}
	return "Error: " + err.Error()
}
