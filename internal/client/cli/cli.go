// Package cli implements the terminal commands of the interview client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/iudanet/aiinterview/internal/client/api"
	"github.com/iudanet/aiinterview/internal/client/auth"
	"github.com/iudanet/aiinterview/internal/client/interview"
	"github.com/iudanet/aiinterview/internal/client/iocli"
	"github.com/iudanet/aiinterview/internal/client/router"
	"github.com/iudanet/aiinterview/internal/client/storage"
	"github.com/iudanet/aiinterview/internal/client/user"
)

var (
	// ErrUnknownCommand is returned by Run for a command it does not know
	ErrUnknownCommand = errors.New("unknown command")
	// ErrLoginRequired - команда доступна только после входа
	ErrLoginRequired = errors.New("login required, run 'aiinterview login' first")
	// ErrUsage is returned when a command gets the wrong arguments
	ErrUsage = errors.New("invalid arguments")
)

// Deps holds the services the commands work with
type Deps struct {
	IO     iocli.IO
	Auth   *auth.Store
	Users  *user.Store
	Client *api.Client
	// GuestClient обслуживает интервью, по умолчанию Client
	GuestClient interview.APIClient
	Router      *router.Router
	Storage     storage.Storage
	Logger      *slog.Logger
	Version     string
	// Platform is appended to the user agent, e.g. "linux/amd64"
	Platform string
	// InterviewOptions передаются каждому новому interview.Store
	InterviewOptions []interview.Option
}

type Cli struct {
	io               iocli.IO
	auth             *auth.Store
	users            *user.Store
	client           *api.Client
	guestClient      interview.APIClient
	router           *router.Router
	storage          storage.Storage
	logger           *slog.Logger
	version          string
	platform         string
	interviewOptions []interview.Option
}

func New(d Deps) *Cli {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guest := d.GuestClient
	if guest == nil && d.Client != nil {
		guest = d.Client
	}
	return &Cli{
		io:               d.IO,
		auth:             d.Auth,
		users:            d.Users,
		client:           d.Client,
		guestClient:      guest,
		router:           d.Router,
		storage:          d.Storage,
		logger:           logger,
		version:          d.Version,
		platform:         d.Platform,
		interviewOptions: d.InterviewOptions,
	}
}

// Run executes the command named by args[0]
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "interview":
		return c.runInterview(ctx, rest)
	case "export":
		return c.runExport(ctx, rest)
	case "open":
		return c.runOpen(ctx, rest)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// PrintUsage writes the command reference to w
func PrintUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `AI Interview Client

Usage:
  aiinterview [OPTIONS] COMMAND

Options:
  --version                    Show version information
  --server URL                 Server URL (default: http://localhost:8000)
  --db PATH                    Path to local database (default: aiinterview-client.db, :memory: for none)
  --download-dir DIR           Directory for exported files (default: .)
  --log-level LEVEL            debug, info, warn, error (default: info)
  --timeout DURATION           HTTP request timeout (default: none)
  --verbose                    Show request progress

Every option can also be set with an AIINTERVIEW_* environment variable
(AIINTERVIEW_SERVER, AIINTERVIEW_DB, ...) or in a .env file.

Commands:
  register                                  Create an account
  login                                     Log in
  logout                                    Log out and forget the session
  status                                    Show the login status
  interview <link|projectId> [sessionId]    Take part in an interview as a guest
  export selected <id,id,...> [file]        Export selected sessions (login required)
  export project <projectId> [file]         Export all sessions of a project (login required)
  export session <sessionId> [file]         Export one session (login required)
  open <path>                               Show where a page path leads (e.g. /outline-list)

Interview commands:
  /voice <file>    Send a recorded answer
  /interrupt       Interrupt the AI
  /share           Show the interview link
  /end             End the interview (asks for confirmation)
  /quit            Leave without ending the interview

Examples:
  aiinterview --server https://interview.example.com login
  aiinterview interview 'https://interview.example.com/guest-interview?projectId=7'
  aiinterview export session 42 answers.xlsx
`)
}
