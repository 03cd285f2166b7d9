package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmerge/internal/app"
	"github.com/dgallion1/docmerge/internal/pipeline"
	"github.com/dgallion1/docmerge/internal/placeholder"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <template>",
	Short: "Render a template once per CSV row",
	Long: `Merge reads a CSV data source whose header row names the placeholders and
renders the template once per data row. Artifacts are written into --out as
<template>-<row>.<format>, rows counted from 0. Rows that fail are reported
and the others are still written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath, _ := cmd.Flags().GetString("data")
		f, err := os.Open(dataPath)
		if err != nil {
			return fmt.Errorf("open data: %w", err)
		}
		rows, err := placeholder.ReadCSV(f)
		f.Close()
		if err != nil {
			return err
		}

		cfg := cliConfig()
		log := newLogger()
		a, err := app.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		orch := pipeline.NewOrchestrator(cfg, a.Manager, log)
		orch.Start(cmd.Context())
		defer orch.Stop()

		engine, _ := cmd.Flags().GetString("engine")
		job := pipeline.NewJob(args[0], engine, rows)
		if err := orch.Submit(job); err != nil {
			return err
		}
		select {
		case <-job.Done():
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}

		out, _ := cmd.Flags().GetString("out")
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		snap := job.Snapshot()
		for i := range snap.Progress.TotalRows {
			res, _ := job.Result(i)
			if res.Error != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "row %d: %s\n", i, res.Error)
				continue
			}
			for _, art := range res.Artifacts {
				path := artifactPath(out, args[0], fmt.Sprintf("-%d", i), art.Format)
				if err := os.WriteFile(path, art.Data, 0o644); err != nil {
					return fmt.Errorf("write artifact: %w", err)
				}
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d rendered, %d failed\n", snap.Status, snap.Progress.RowsRendered, snap.Progress.RowsFailed)
		if snap.Status == pipeline.StatusFailed {
			return fmt.Errorf("merge failed")
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().String("data", "", "CSV data source (required)")
	mergeCmd.Flags().String("engine", "", "engine to render with (default: print)")
	mergeCmd.Flags().String("out", ".", "output directory")
	_ = mergeCmd.MarkFlagRequired("data")

	rootCmd.AddCommand(mergeCmd)
}
