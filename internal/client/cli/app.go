package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/foodhub/internal/client/api"
	"github.com/dmitrijs2005/foodhub/internal/client/config"
)

// APIClient is the part of *api.Client the commands use.
type APIClient interface {
	Register(ctx context.Context, email string, password []byte, userType string) (*api.Session, error)
	Login(ctx context.Context, email string, password []byte) (*api.Session, error)
	Guest(ctx context.Context, deviceID string) (*api.Session, error)
	Refresh(ctx context.Context) (*api.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*api.User, error)
	CreateUpload(ctx context.Context, contentType string) (*api.Upload, error)
	UploadToPresignedURL(ctx context.Context, url, contentType string, data []byte) error
	LoggedIn() bool
}

type App struct {
	config *config.Config
	api    APIClient
	reader *bufio.Reader
	out    io.Writer
	user   *api.User
}

func NewApp(c *config.Config) *App {
	return newApp(c, api.New(c.ServerURL, c.RequestTimeout), os.Stdin, os.Stdout)
}

func newApp(c *config.Config, client APIClient, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: client, reader: bufio.NewReader(in), out: out}
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

// status is shown in the prompt, e.g. "(a@b.com customer)".
func (a *App) status() string {
	if a.user == nil || !a.isLoggedIn() {
		return ""
	}
	if a.user.Email == "" {
		return fmt.Sprintf("(%s)", a.user.UserType)
	}
	return fmt.Sprintf("(%s %s)", a.user.Email, a.user.UserType)
}

func (a *App) setSession(s *api.Session) {
	u := s.User
	a.user = &u
}

// Run prints a banner and runs the REPL until exit or EOF.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to FoodHub CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)
}
