package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/conplan/scheduler/internal/config"
	"github.com/conplan/scheduler/internal/reporting"
	"github.com/conplan/scheduler/internal/reporting/graphstore"
	"github.com/conplan/scheduler/internal/scheduler"
	"github.com/conplan/scheduler/pkg/logger"
)

var (
	runBundlePath string
	runLogLevel   string
	runGraphDB    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute a schedule from a run bundle and print it as a table",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runBundlePath, "bundle", "f", "", "path to the run bundle (JSON or YAML)")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
	runCmd.Flags().StringVar(&runGraphDB, "graph-db", "", "optional path to a KuzuDB directory to audit this run into")
	_ = runCmd.MarkFlagRequired("bundle")
}

func runRun(cmd *cobra.Command, args []string) error {
	bundle, err := config.LoadBundle(runBundlePath)
	if err != nil {
		return fail("loading run bundle: %w", err)
	}
	if bundle.Options.RunID == "" {
		bundle.Options.RunID = uuid.New().String()
	}

	ctx, err := bundle.ToContext()
	if err != nil {
		return fail("normalising run bundle: %w", err)
	}

	log := logger.NewDefaultLogger("conplan", runLogLevel)
	sched, err := scheduler.Run(ctx, log)
	if err != nil {
		return fail("scheduling failed: %w", err)
	}

	reporting.WriteSchedule(os.Stdout, sched, ctx.Equipment)
	successColor.Printf("\nscheduled %d tasks over %d workdays (run %s)\n",
		len(sched.Tasks), sched.Analysis.ProjectDuration, ctx.RunID)

	if runGraphDB != "" {
		if err := auditRun(ctx.RunID, sched); err != nil {
			return fail("writing audit graph: %w", err)
		}
	}
	return nil
}

func auditRun(runID string, sched *scheduler.Schedule) error {
	store, err := graphstore.Open(runGraphDB, 4)
	if err != nil {
		return err
	}
	defer store.Close()

	bg := context.Background()
	if err := store.EnsureSchema(bg); err != nil {
		return err
	}
	if err := store.WriteRun(bg, runID, sched); err != nil {
		return err
	}
	fmt.Printf("audit graph written to %s\n", runGraphDB)
	return nil
}
