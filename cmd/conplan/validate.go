package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conplan/scheduler/internal/config"
	"github.com/conplan/scheduler/internal/graph"
	"github.com/conplan/scheduler/pkg/logger"
)

var validateBundlePath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a run bundle for missing dependencies and dependency cycles without scheduling it",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateBundlePath, "bundle", "f", "", "path to the run bundle (JSON or YAML)")
	_ = validateCmd.MarkFlagRequired("bundle")
}

func runValidate(cmd *cobra.Command, args []string) error {
	bundle, err := config.LoadBundle(validateBundlePath)
	if err != nil {
		return fail("loading run bundle: %w", err)
	}
	ctx, err := bundle.ToContext()
	if err != nil {
		return fail("normalising run bundle: %w", err)
	}

	log := logger.NewDefaultLogger("conplan-validate", "WARN")
	instances, warnings, err := graph.Generate(ctx, log)
	if err != nil {
		errorColor.Printf("invalid: %v\n", err)
		return err
	}

	successColor.Printf("valid: %d task instances generated, %d warnings\n", len(instances), len(warnings))
	for _, w := range warnings {
		fmt.Printf("  %s: %s\n", w.TaskID, w.Message)
	}
	return nil
}
