package commands

import (
	"context"
	"fmt"

	"interviewprep/internal/models"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(env *Env) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands.

Available commands:
  create - Create a user, prompting for the password
  show   - Show a user by email`,
	}

	userCmd.AddCommand(createUserCmd(env))
	userCmd.AddCommand(showUserCmd(env))

	return userCmd
}

func createUserCmd(env *Env) *cobra.Command {
	var name, role string

	cmd := &cobra.Command{
		Use:   "create [email]",
		Short: "Create a user",
		Long:  `Create a user with the given email. The password is read from the terminal, or from stdin when piped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if role != services.RoleUser && role != services.RoleAdmin {
				return contextutils.ErrorWithContextf("role must be %q or %q", services.RoleUser, services.RoleAdmin)
			}

			secrets := newSecretReader(cmd)
			password, err := secrets.Read("Enter password: ")
			if err != nil {
				return err
			}
			confirm, err := secrets.Read("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return contextutils.ErrorWithContextf("passwords do not match")
			}

			userService, err := env.UserService(ctx)
			if err != nil {
				return err
			}

			if name == "" {
				name = args[0]
			}
			user, err := userService.CreateUserWithRole(ctx, &models.RegisterRequest{
				Name:     name,
				Email:    args[0],
				Password: password,
			}, role)
			if err != nil {
				return contextutils.WrapError(err, "failed to create user")
			}

			env.Logger.Info(ctx, "User created via admin tool", map[string]interface{}{"user_id": user.ID, "role": user.Role})
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email)")
	cmd.Flags().StringVar(&role, "role", services.RoleUser, "role: user or admin")

	return cmd
}

func showUserCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show [email]",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			userService, err := env.UserService(ctx)
			if err != nil {
				return err
			}
			user, err := userService.GetUserByEmail(ctx, args[0])
			if err != nil {
				return contextutils.WrapError(err, "failed to look up user")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %s\n", "ID", user.ID)
			fmt.Fprintf(out, "%-10s %s\n", "Name", user.Name)
			fmt.Fprintf(out, "%-10s %s\n", "Email", user.Email)
			fmt.Fprintf(out, "%-10s %s\n", "Role", user.Role)
			fmt.Fprintf(out, "%-10s %s\n", "Created", user.CreatedAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
}
