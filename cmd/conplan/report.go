package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/conplan/scheduler/internal/config"
	"github.com/conplan/scheduler/internal/reporting"
	"github.com/conplan/scheduler/internal/scheduler"
	"github.com/conplan/scheduler/pkg/logger"
)

var (
	reportBundlePath string
	reportOutputPath string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Schedule a run bundle and write the resulting table to a file or stdout",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportBundlePath, "bundle", "f", "", "path to the run bundle (JSON or YAML)")
	reportCmd.Flags().StringVarP(&reportOutputPath, "output", "o", "", "output file path; defaults to stdout")
	_ = reportCmd.MarkFlagRequired("bundle")
}

func runReport(cmd *cobra.Command, args []string) error {
	bundle, err := config.LoadBundle(reportBundlePath)
	if err != nil {
		return fail("loading run bundle: %w", err)
	}
	ctx, err := bundle.ToContext()
	if err != nil {
		return fail("normalising run bundle: %w", err)
	}

	log := logger.NewDefaultLogger("conplan-report", "WARN")
	sched, err := scheduler.Run(ctx, log)
	if err != nil {
		return fail("scheduling failed: %w", err)
	}

	out := os.Stdout
	if reportOutputPath != "" {
		f, err := os.Create(reportOutputPath)
		if err != nil {
			return fail("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	reporting.WriteSchedule(out, sched, ctx.Equipment)
	return nil
}
