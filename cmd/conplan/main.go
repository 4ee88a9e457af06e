// Command conplan is the scheduling engine's command-line front end: load a
// run bundle, validate it, compute a schedule, and render or explain it.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "conplan",
	Short: "Construction schedule generation and analysis",
	Long: `conplan expands a base-task catalogue into a per-zone, per-floor
schedule: it resolves task dependencies, runs the critical path method,
allocates crews and equipment under contention, and places every task on
the calendar.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd, validateCmd, explainCmd, reportCmd)
}

func fail(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
