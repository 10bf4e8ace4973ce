package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"lifeplan/internal/config"
	"lifeplan/internal/repository/postgres"
)

// MigrateCmd applies the schema for the configured driver
func MigrateCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			drop, _ := cmd.Flags().GetBool("drop")
			cfg := env.Config
			ctx := cmd.Context()

			// Destructive operations never run against production
			if drop && cfg.Environment == "prod" {
				return fmt.Errorf("refusing to drop tables in the prod environment")
			}

			if drop {
				if cfg.DatabaseDriver != config.DriverPostgres {
					return fmt.Errorf("--drop is only supported for the postgres driver")
				}
				pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
				if err != nil {
					return err
				}
				err = postgres.DropAllTables(ctx, pool, postgres.NewTableNames(cfg.TablePrefix), env.Logger)
				pool.Close()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Dropped tables with prefix %q\n", warnMark, cfg.TablePrefix)
			}

			storage, err := env.openStorage(ctx, true)
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			defer storage.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s Schema up to date (driver: %s, environment: %s)\n",
				okMark, storage.Driver, cfg.Environment)
			return nil
		},
	}

	cmd.Flags().Bool("drop", false, "Drop all tables before migrating (postgres, non-prod only)")
	return cmd
}
