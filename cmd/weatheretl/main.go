package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/tigerroll/weatheretl/internal/app"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

// embeddedConfig is the default application.yaml. ${VAR} references are
// expanded from the environment and the .env file at startup.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// embeddedJSL defines the weatherPipelineJob flow.
//
//go:embed resources/job.yaml
var embeddedJSL []byte

//go:embed all:resources/migrations
var embeddedMigrations embed.FS

var rootCmd = &cobra.Command{
	Use:   "weatheretl",
	Short: "Weather ETL - fetch, normalize and load OpenWeather observations",
	Long: `weatheretl fetches the current observation from the OpenWeather API,
stores it as a raw CSV snapshot, normalizes it and upserts it into the
weather_observation table.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// baseOptions returns the run options shared by every command.
func baseOptions() (app.Options, error) {
	migrations, err := fs.Sub(embeddedMigrations, "resources/migrations")
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{
		EnvFilePath:  getEnv("ENV_FILE_PATH", ".env"),
		Config:       embeddedConfig,
		JSL:          embeddedJSL,
		MigrationsFS: migrations,
		DBProviders:  app.DBProviderOptions(os.Getenv("DB_ADAPTERS")),
	}, nil
}

// execute runs the job. A job that did not complete is returned as an error,
// which main reports with exit code 1.
func execute(cmd *cobra.Command, opts app.Options) (*model.JobExecution, error) {
	je, err := app.Run(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	return je, app.Result(je)
}
