// Package cli implements lifeplanctl, the operator CLI for schema
// migrations, household administration and completion scoring.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"lifeplan/internal/auth"
	"lifeplan/internal/bootstrap"
	"lifeplan/internal/config"
)

// UserDirectory resolves account emails to user ids
type UserDirectory interface {
	FindUserIDByEmail(ctx context.Context, email string) (string, error)
	CreateUser(ctx context.Context, email, password string) (string, error)
}

// Env is what every command runs against
type Env struct {
	Config *config.Config
	Logger *slog.Logger

	// Users defaults to the Supabase admin API
	Users UserDirectory
}

func (e *Env) users() (UserDirectory, error) {
	if e.Users != nil {
		return e.Users, nil
	}
	if e.Config.SupabaseURL == "" || e.Config.SupabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required to look up users")
	}
	e.Users = auth.NewAdminClient(e.Config.SupabaseURL, e.Config.SupabaseKey)
	return e.Users, nil
}

func (e *Env) openStorage(ctx context.Context, migrate bool) (*bootstrap.Storage, error) {
	return bootstrap.OpenStorage(ctx, e.Config, migrate, e.Logger)
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
)

// NewRootCmd builds the lifeplanctl command tree
func NewRootCmd(env *Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lifeplanctl",
		Short: "Operate the lifeplan backend",
		Long: `lifeplanctl applies database migrations, administers households and
scores profile or vision documents against the completion rulesets.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(MigrateCmd(env))
	rootCmd.AddCommand(HouseholdCmd(env))
	rootCmd.AddCommand(UserCmd(env))
	rootCmd.AddCommand(ScoreCmd())

	return rootCmd
}
