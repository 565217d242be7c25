package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"interviewprep/internal/auth"
	contextutils "interviewprep/internal/utils"

	"github.com/spf13/cobra"
)

// TokenCommands returns commands for issuing and inspecting bearer credentials
func TokenCommands(env *Env) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer credential commands",
		Long: `Bearer credential commands.

Available commands:
  issue  - Issue a credential for an existing user
  verify - Verify a credential and print its identity`,
	}

	tokenCmd.AddCommand(issueTokenCmd(env))
	tokenCmd.AddCommand(verifyTokenCmd(env))

	return tokenCmd
}

func requireSecret(env *Env) error {
	if strings.TrimSpace(env.Config.Auth.JWTSecret) == "" {
		return contextutils.ErrorWithContextf("auth.jwt_secret is not configured")
	}
	return nil
}

func issueTokenCmd(env *Env) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue [email]",
		Short: "Issue a credential for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := requireSecret(env); err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = env.Config.Auth.TokenTTL
			}

			userService, err := env.UserService(ctx)
			if err != nil {
				return err
			}
			user, err := userService.GetUserByEmail(ctx, args[0])
			if err != nil {
				return contextutils.WrapError(err, "failed to look up user")
			}

			issuer := auth.NewIssuer(env.Config.Auth.JWTSecret, env.Config.Auth.Issuer, ttl)
			token, expiresAt, err := issuer.Issue(user.ID, user.Email, user.Role)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "credential lifetime (defaults to auth.token_ttl)")

	return cmd
}

func verifyTokenCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify a credential and print its identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSecret(env); err != nil {
				return err
			}

			verifier := auth.NewVerifier(env.Config.Auth.JWTSecret, env.Config.Auth.Issuer)
			identity, err := verifier.Verify(args[0])
			if err != nil {
				var authErr *auth.Error
				if errors.As(err, &authErr) {
					return contextutils.ErrorWithContextf("credential rejected: %s", authErr.Kind)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-8s %s\n", "User", identity.UserID)
			fmt.Fprintf(out, "%-8s %s\n", "Email", identity.Email)
			fmt.Fprintf(out, "%-8s %s\n", "Role", identity.Role)
			fmt.Fprintf(out, "%-8s %s\n", "Expires", identity.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
}
