// Package main provides the admin CLI for the interview prep backend.
package main

import (
	"context"
	"fmt"
	"os"

	"interviewprep/cmd/adm/commands"
	"interviewprep/internal/config"
	"interviewprep/internal/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// The admin tool talks to no collector
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, shutdown, err := observability.SetupObservability(&cfg.OpenTelemetry, "prep-adm", zapcore.ErrorLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	defer func() { _ = shutdown(context.Background()) }()

	env := commands.NewEnv(cfg, logger)
	defer env.Close()

	if err := newRootCmd(env).Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Interview prep administration tool",
		Long: `Interview prep administration tool

Manages users, database migrations and bearer credentials.
Configuration is read from the file named by ` + config.ConfigFileEnv + ` and from the environment.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(commands.UserCommands(env))
	rootCmd.AddCommand(commands.DatabaseCommands(env))
	rootCmd.AddCommand(commands.TokenCommands(env))
	rootCmd.AddCommand(commands.VersionCommand())

	return rootCmd
}
