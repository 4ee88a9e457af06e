// Package reporting renders a completed schedule as a human-readable
// table: one row per task, critical-path tasks highlighted, with a
// cost-aware column summing each task's allocated equipment spend.
package reporting

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/conplan/scheduler/internal/calendar"
	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/internal/scheduler"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	headerColor   = color.New(color.FgMagenta, color.Bold)
)

// WriteSchedule renders sched's task list to w as a table ordered by start
// date then task id. Critical-path
// tasks (zero float) are printed in bold red.
func WriteSchedule(w io.Writer, sched *scheduler.Schedule, equipment map[string]*catalogue.EquipmentPool) {
	tasks := append([]*catalogue.TaskInstance(nil), sched.Tasks...)
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].StartDate.Equal(tasks[j].StartDate) {
			return tasks[i].StartDate.Before(tasks[j].StartDate)
		}
		return tasks[i].ID < tasks[j].ID
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Task", "Discipline", "Zone", "Floor", "Start", "End", "Crews", "Equipment", "Cost", "Float"})
	table.SetBorder(false)
	table.SetRowSeparator("-")
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
		tablewriter.Colors{tablewriter.FgMagentaColor, tablewriter.Bold},
	)

	for _, t := range tasks {
		row := []string{
			t.ID,
			t.Discipline,
			t.Zone,
			fmt.Sprintf("%d", t.Floor),
			t.StartDate.Format("2006-01-02"),
			t.EndDate.Format("2006-01-02"),
			fmt.Sprintf("%d", t.AllocatedCrews),
			formatEquipment(t.AllocatedEquipment),
			estimateCost(t, equipment, sched.Calendar).StringFixed(2),
			fmt.Sprintf("%d", t.Float),
		}
		if t.Critical() {
			for i := range row {
				row[i] = criticalColor.Sprint(row[i])
			}
		}
		table.Append(row)
	}
	table.Render()

	if len(sched.Warnings) > 0 {
		fmt.Fprintln(w)
		headerColor.Fprintln(w, "WARNINGS:")
		for _, warn := range sched.Warnings {
			fmt.Fprintf(w, "  %s: %s\n", warn.TaskID, warn.Message)
		}
	}
}

func formatEquipment(alloc map[string]int) string {
	if len(alloc) == 0 {
		return "-"
	}
	names := make([]string, 0, len(alloc))
	for name := range alloc {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s:%d", name, alloc[name])
	}
	return out
}

// estimateCost is a reporting-only convenience, not a scheduling
// objective: allocated equipment units times hourly rate times the
// task's workday count times an 8-hour shift.
func estimateCost(t *catalogue.TaskInstance, equipment map[string]*catalogue.EquipmentPool, cal *calendar.Calendar) decimal.Decimal {
	if len(t.AllocatedEquipment) == 0 {
		return decimal.Zero
	}
	hours := decimal.NewFromInt(int64(workdayCount(t, cal))).Mul(decimal.NewFromInt(8))
	total := decimal.Zero
	for name, units := range t.AllocatedEquipment {
		pool, ok := equipment[name]
		if !ok {
			continue
		}
		total = total.Add(pool.HourlyRate.Mul(decimal.NewFromInt(int64(units))).Mul(hours))
	}
	return total
}

// workdayCount returns the actual number of billable workdays in a task's
// placement window, skipping weekends and holidays per cal. Falls back to a
// calendar-day span if cal is nil (e.g. a hand-built Schedule in tests).
func workdayCount(t *catalogue.TaskInstance, cal *calendar.Calendar) int {
	var days int
	if cal != nil {
		days = cal.WorkdaysBetween(t.StartDate, t.EndDate)
	} else {
		days = int(t.EndDate.Sub(t.StartDate).Hours() / 24)
	}
	if days < 1 {
		return 1
	}
	return days
}
