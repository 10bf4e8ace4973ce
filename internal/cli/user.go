package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// UserCmd manages Supabase accounts for local development
func UserCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage Supabase accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create [email]",
		Short: "Create a confirmed account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Config.Environment == "prod" {
				return fmt.Errorf("refusing to create accounts in the prod environment")
			}
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			users, err := env.users()
			if err != nil {
				return err
			}
			id, err := users.CreateUser(cmd.Context(), args[0], password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Created user %s: %s\n", okMark, id, args[0])
			return nil
		},
	}
	createCmd.Flags().String("password", "", "Account password")

	cmd.AddCommand(createCmd)
	return cmd
}
