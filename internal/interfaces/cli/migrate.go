package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/database/postgres"
)

// NewMigrateCmd creates the migrate command group. Unlike the other commands
// it talks to PostgreSQL directly and does not need a running API server.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		newMigrateUpCmd(),
		newMigrateDownCmd(),
		newMigrateStatusCmd(),
	)

	return cmd
}

func migrationTarget(cmd *cobra.Command) (dbURL, path string, err error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return "", "", err
	}
	return postgres.BuildDSN(cliCtx.Config.Database), cliCtx.Config.Database.MigrationPath, nil
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, path, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(dbURL, path); err != nil {
				return err
			}
			PrintSuccess(cmd, "schema is up to date")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, path, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(dbURL, path, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, path, err := migrationTarget(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(dbURL, path)
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			return PrintResult(cmd, fmt.Sprintf("version %d (%s)", version, state))
		},
	}
}
