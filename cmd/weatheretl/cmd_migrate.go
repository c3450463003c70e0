package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerroll/weatheretl/internal/app"
	"github.com/tigerroll/weatheretl/internal/job"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the weather_observation schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate("up"),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate("down"),
}

func init() {
	migrateCmd.PersistentFlags().String("db", "", "database connection to migrate (defaults to weather.db_ref)")
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigrate(command string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		opts, err := baseOptions()
		if err != nil {
			return err
		}
		props := map[string]string{"command": command}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			props["dbRef"] = db
		}
		opts.Steps = []string{job.MigrateStep}
		opts.Properties = map[string]map[string]string{job.MigrateStep: props}
		je, err := execute(cmd, opts)
		if err != nil {
			return err
		}
		if version, ok := app.SchemaVersion(je, job.MigrateStep); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
		}
		return nil
	}
}
