// Package cli is the vault command line: it serves the HTTP API, runs
// schema migrations, generates encryption keys and administers identities.
//
// Subcommands leave flag parsing to the config layer, so the same single-dash
// flags (-d, -s, -k, ...) and -c config.json work after any subcommand.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/axiscapital/vault/internal/cryptox"
	"github.com/axiscapital/vault/internal/flagx"
	"github.com/axiscapital/vault/internal/server"
	"github.com/axiscapital/vault/internal/server/config"
	"github.com/axiscapital/vault/internal/server/models"
	"github.com/axiscapital/vault/internal/server/repositories/repomanager"
	"github.com/axiscapital/vault/internal/server/services"
	"github.com/spf13/cobra"
)

const configHelp = `Configuration flags (also read from .env, the environment and -c config.json):
  -a addr     HTTP bind address
  -d dsn      PostgreSQL DSN
  -s secret   JWT secret key
  -j alg      JWT algorithm (HS256, HS384, HS512)
  -t minutes  access token lifetime
  -k hex      secret encryption key, 64 hex characters
  -r url      Redis URL, enables logout
  -l level    log level
  -f format   log format (json, text, zap)
  -c file     JSON config file`

// application is what the serve and user commands need from server.App.
type application interface {
	Run(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
	Register(ctx context.Context, in services.RegisterInput) (*models.Identity, error)
	SetActive(ctx context.Context, username string, active bool) (*models.Identity, error)
}

type migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	MigrationStatus(ctx context.Context, db *sql.DB) error
}

type serverApp struct{ *server.App }

func (a serverApp) Register(ctx context.Context, in services.RegisterInput) (*models.Identity, error) {
	return a.Accounts().Register(ctx, in)
}

func (a serverApp) SetActive(ctx context.Context, username string, active bool) (*models.Identity, error) {
	return a.Accounts().SetActive(ctx, username, active)
}

// seams for tests
var (
	loadConfig = config.LoadConfig
	newApp     = func(ctx context.Context, cfg *config.Config, logOut io.Writer) (application, error) {
		a, err := server.NewApp(ctx, cfg, logOut)
		if err != nil {
			return nil, err
		}
		return serverApp{a}, nil
	}
	openDB      = server.OpenDB
	newMigrator = func() migrator { return repomanager.NewPostgresRepositoryManager() }
	generateKey = cryptox.GenerateKeyHex
	stdinFd     = func() int { return int(os.Stdin.Fd()) }
)

// NewRootCommand builds the command tree reading prompts from in and writing
// to out and errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "vault",
		Short:         "Account and credential vault",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	reader := bufio.NewReader(in)

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newKeygenCommand(),
		newUserCommand(reader),
	)
	return root
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// rawCommand returns a command whose arguments are left unparsed for the
// config layer.
func rawCommand(use, short string, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		Long:               short + "\n\n" + configHelp,
		DisableFlagParsing: true,
		RunE:               run,
	}
}

func positionals(args []string) []string {
	return flagx.Positionals(args, config.ValueFlags)
}
