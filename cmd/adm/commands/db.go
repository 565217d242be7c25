package commands

import (
	"context"
	"errors"
	"fmt"

	"interviewprep/internal/database"
	contextutils "interviewprep/internal/utils"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(env *Env) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  migrate - Apply pending schema migrations
  status  - Show the current schema version
  stats   - Show row counts`,
	}

	dbCmd.AddCommand(migrateCmd(env))
	dbCmd.AddCommand(statusCmd(env))
	dbCmd.AddCommand(statsCmd(env))

	return dbCmd
}

func migrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			env.Logger.Info(ctx, "Running migrations", map[string]interface{}{"database": maskDatabaseURL(env.Config.Database.URL)})

			version, err := database.NewManager(env.Logger).RunMigrations(ctx, env.Config.Database.URL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}
}

func statusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := database.NewMigrator(env.Config.Database.URL)
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			version, dirty, err := m.Version()
			switch {
			case errors.Is(err, migrate.ErrNilVersion):
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			case err != nil:
				return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to read schema version: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}

func statsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			db, err := env.DB(ctx)
			if err != nil {
				return err
			}

			for _, table := range []string{"users", "sessions", "questions"} {
				var count int64
				// table names come from the fixed list above
				if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
					return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to count %s: %w", table, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n", table, count)
			}
			return nil
		},
	}
}
