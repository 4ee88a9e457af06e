package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/internal/config"
	"github.com/conplan/scheduler/internal/scheduler"
	"github.com/conplan/scheduler/pkg/logger"
)

var (
	explainBundlePath string
	explainTaskID     string
	criticalColor     = color.New(color.FgRed, color.Bold)
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show why a specific task instance landed where it did in the schedule",
	RunE:  runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&explainBundlePath, "bundle", "f", "", "path to the run bundle (JSON or YAML)")
	explainCmd.Flags().StringVar(&explainTaskID, "task", "", "task instance id to explain")
	_ = explainCmd.MarkFlagRequired("bundle")
	_ = explainCmd.MarkFlagRequired("task")
}

func runExplain(cmd *cobra.Command, args []string) error {
	bundle, err := config.LoadBundle(explainBundlePath)
	if err != nil {
		return fail("loading run bundle: %w", err)
	}
	ctx, err := bundle.ToContext()
	if err != nil {
		return fail("normalising run bundle: %w", err)
	}

	log := logger.NewDefaultLogger("conplan-explain", "WARN")
	sched, err := scheduler.Run(ctx, log)
	if err != nil {
		return fail("scheduling failed: %w", err)
	}

	var task *catalogue.TaskInstance
	for _, t := range sched.Tasks {
		if t.ID == explainTaskID {
			task = t
			break
		}
	}
	if task == nil {
		return fail("task %s was not found in the generated schedule", explainTaskID)
	}

	fmt.Printf("task:        %s (%s)\n", task.ID, task.Name)
	fmt.Printf("discipline:  %s   zone: %s   floor: %d\n", task.Discipline, task.Zone, task.Floor)
	fmt.Printf("window:      %s -> %s\n", task.StartDate.Format("2006-01-02"), task.EndDate.Format("2006-01-02"))
	fmt.Printf("crews:       %d\n", task.AllocatedCrews)
	fmt.Printf("equipment:   %v\n", task.AllocatedEquipment)
	fmt.Printf("early start/finish: %d / %d\n", task.ES, task.EF)
	fmt.Printf("late start/finish:  %d / %d\n", task.LS, task.LF)
	fmt.Printf("float:       %d", task.Float)
	if task.Float == 0 {
		criticalColor.Print(" (critical path)")
	}
	fmt.Println()

	preds := append([]string(nil), task.Predecessors...)
	sort.Strings(preds)
	fmt.Printf("predecessors: %v\n", preds)

	if attempts, ok := sched.Diagnostics[task.ID]; ok && len(attempts) > 0 {
		fmt.Printf("placement attempts before landing: %d\n", len(attempts))
		for _, a := range attempts {
			fmt.Printf("  tried %s -> %s: %s\n", a.Start.Format("2006-01-02"), a.End.Format("2006-01-02"), a.Reason)
		}
	}
	return nil
}
