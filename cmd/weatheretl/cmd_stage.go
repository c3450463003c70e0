package main

import (
	"github.com/spf13/cobra"

	"github.com/tigerroll/weatheretl/internal/job"
	"github.com/tigerroll/weatheretl/internal/step/tasklet"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one observation into a raw CSV snapshot",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a raw snapshot",
	Long:  `Normalize the raw snapshot given by --input, or the newest one in weather.raw_dir.`,
	Args:  cobra.NoArgs,
	RunE:  runStage(job.NormalizeStep),
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a processed file into weather_observation",
	Long:  `Upsert the processed file given by --input, or the newest one in weather.processed_dir. The schema is migrated first.`,
	Args:  cobra.NoArgs,
	RunE:  runStage(job.MigrateStep, job.LoadStep),
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a processed file as Parquet",
	Args:  cobra.NoArgs,
	RunE:  runStage(job.ExportStep),
}

func init() {
	for _, c := range []*cobra.Command{normalizeCmd, loadCmd, exportCmd} {
		c.Flags().StringP("input", "i", "", "file to read instead of the newest one")
	}
	rootCmd.AddCommand(fetchCmd, normalizeCmd, loadCmd, exportCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions()
	if err != nil {
		return err
	}
	opts.Steps = []string{job.FetchStep}
	_, err = execute(cmd, opts)
	return err
}

func runStage(steps ...string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		opts, err := baseOptions()
		if err != nil {
			return err
		}
		opts.Steps = steps
		opts.Params = stageParams(cmd)
		_, err = execute(cmd, opts)
		return err
	}
}

func stageParams(cmd *cobra.Command) model.JobParameters {
	params := model.NewJobParameters()
	if input, _ := cmd.Flags().GetString("input"); input != "" {
		params.Put(tasklet.InputParam, input)
	}
	return params
}
