package main

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the final candidate",
		Long: `Run acquisition, change detection, the integrity checks and promotion once.

The final candidate is printed as JSON. A halted run exits 0; a fatal error
exits 1 without promoting anything.`,
		Args: cobra.NoArgs,
		RunE: runOnce,
	}
	cmd.Flags().String("trigger", "manual", "label recorded with the run")
	return cmd
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	trigger, _ := cmd.Flags().GetString("trigger")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := newPipeline(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer deps.cleanup()

	res, err := deps.runner.Run(ctx, trigger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Candidate)
}
