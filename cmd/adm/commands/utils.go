// Package commands provides CLI commands for the admin tool
package commands

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"interviewprep/internal/config"
	"interviewprep/internal/database"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Env carries what every command needs. The database is opened on first use so that
// commands which never touch it work without one.
type Env struct {
	Config *config.Config
	Logger *observability.Logger

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error
}

// NewEnv creates an Env
func NewEnv(cfg *config.Config, logger *observability.Logger) *Env {
	return &Env{Config: cfg, Logger: logger}
}

// DB opens the configured database once and returns the shared handle
func (e *Env) DB(ctx context.Context) (*sql.DB, error) {
	e.dbOnce.Do(func() {
		e.db, e.dbErr = database.NewManager(e.Logger).Open(ctx, e.Config.Database)
	})
	return e.db, e.dbErr
}

// UserService returns a user service over the configured database
func (e *Env) UserService(ctx context.Context) (services.UserServiceInterface, error) {
	db, err := e.DB(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewUserServiceWithLogger(db, e.Logger), nil
}

// Close releases the database handle if one was opened
func (e *Env) Close() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.Logger.Warn(context.Background(), "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}
}

// maskDatabaseURL hides the password in a database URL for display
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid database url>"
	}
	return u.Redacted()
}

// secretReader reads passwords without echo from a terminal, or line by line from piped input
type secretReader struct {
	cmd   *cobra.Command
	lines *bufio.Reader
}

func newSecretReader(cmd *cobra.Command) *secretReader {
	return &secretReader{cmd: cmd, lines: bufio.NewReader(cmd.InOrStdin())}
}

func (r *secretReader) Read(prompt string) (string, error) {
	fmt.Fprint(r.cmd.ErrOrStderr(), prompt)

	if f, ok := r.cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.cmd.ErrOrStderr())
		if err != nil {
			return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := r.lines.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
