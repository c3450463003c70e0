package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline",
	Long:  `Migrate the schema, then fetch, normalize and load one observation. The Parquet export runs when weather.export.enabled is set.`,
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions()
	if err != nil {
		return err
	}
	_, err = execute(cmd, opts)
	return err
}
