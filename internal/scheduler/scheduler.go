// Package scheduler implements the priority-driven list scheduler,
// component C6: it wires the calendar, task generator, graph analyzer,
// duration calculator, and resource managers into the final time-phased
// assignment.
package scheduler

import (
	"sort"
	"time"

	"github.com/conplan/scheduler/internal/calendar"
	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/internal/cpm"
	"github.com/conplan/scheduler/internal/duration"
	"github.com/conplan/scheduler/internal/graph"
	"github.com/conplan/scheduler/internal/resources"
	"github.com/conplan/scheduler/internal/schederr"
	"github.com/conplan/scheduler/pkg/logger"
)

// maxPlacementAttempts bounds the per-task retry loop in the topological
// batch loop; hitting it fails the whole run with AllocationStarved.
const maxPlacementAttempts = 5000

// PlacementAttempt is one rejected placement window tried for a task, kept
// for the explain diagnostics supplemented feature. The accepted window is
// not recorded here; it is the task's StartDate/EndDate.
type PlacementAttempt struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// Schedule is the output of a run: the committed task list plus warnings
// accumulated along the way and per-task placement diagnostics.
type Schedule struct {
	Tasks       []*catalogue.TaskInstance
	Warnings    []catalogue.Warning
	Diagnostics map[string][]PlacementAttempt
	Analysis    *cpm.Analysis
	Calendar    *calendar.Calendar
}

// Run executes a complete scheduling pass over ctx: task generation,
// priority computation, and the topological placement loop. It returns
// before any allocation is committed if validation fails.
func Run(ctx *catalogue.Context, log logger.Logger) (*Schedule, error) {
	if ctx.RunID != "" {
		log = log.With("run_id", ctx.RunID)
	}

	tasks, warnings, err := graph.Generate(ctx, log)
	if err != nil {
		return nil, err
	}

	cal := calendar.New(ctx.Workweek, ctx.Holidays)
	byID := make(map[string]*catalogue.TaskInstance, len(tasks))
	baseByID := make(map[string]*catalogue.BaseTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		baseByID[t.ID] = t.Base
	}

	minDuration, err := minimumResourceDurations(ctx, tasks)
	if err != nil {
		return nil, err
	}
	priorityAnalysis, err := cpm.Analyze(tasks, func(id string) int { return minDuration[id] })
	if err != nil {
		return nil, err
	}

	order := priorityOrder(tasks, priorityAnalysis)

	workerMgr := resources.NewWorkerManager(ctx.Workers, ctx.Acceleration)
	equipMgr := resources.NewEquipmentManager(ctx.Equipment, ctx.Acceleration)

	diagnostics := make(map[string][]PlacementAttempt, len(tasks))
	scheduled := make(map[string]bool, len(tasks))
	successors := buildSuccessors(tasks)

	ready := make(map[string]bool)
	for _, t := range tasks {
		if len(t.Predecessors) == 0 {
			ready[t.ID] = true
		}
	}

	for len(scheduled) < len(tasks) {
		id := pickBest(ready, order)
		if id == "" {
			return nil, schederr.New(schederr.KindInvalidInput, "", "no ready task found but schedule incomplete")
		}
		delete(ready, id)
		task := byID[id]
		base := baseByID[id]

		earliest := earliestStart(ctx, task, byID, cal)

		start, end, crews, equipAlloc, attempts, err := place(ctx, cal, task, base, workerMgr, equipMgr, earliest)
		diagnostics[id] = attempts
		if err != nil {
			return nil, err
		}

		if crews > 0 {
			workerMgr.Allocate(base.ResourceType, id, crews, start, end)
		}
		if len(equipAlloc) > 0 {
			equipMgr.Allocate(equipAlloc, id, start, end)
		}

		task.StartDate = start
		task.EndDate = end
		task.AllocatedCrews = crews
		task.AllocatedEquipment = equipAlloc
		scheduled[id] = true

		for _, succID := range successors[id] {
			succ := byID[succID]
			if allScheduled(succ.Predecessors, scheduled) {
				ready[succID] = true
			}
		}
	}

	finalAnalysis, err := cpm.Analyze(tasks, func(id string) int {
		return cal.WorkdaysBetween(byID[id].StartDate, byID[id].EndDate)
	})
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		t.ES = finalAnalysis.EarlyStart[t.ID]
		t.EF = finalAnalysis.EarlyFinish[t.ID]
		t.LS = finalAnalysis.LateStart[t.ID]
		t.LF = finalAnalysis.LateFinish[t.ID]
		t.Float = finalAnalysis.Float[t.ID]
	}

	return &Schedule{
		Tasks:       tasks,
		Warnings:    warnings,
		Diagnostics: diagnostics,
		Analysis:    finalAnalysis,
		Calendar:    cal,
	}, nil
}

func minimumResourceDurations(ctx *catalogue.Context, tasks []*catalogue.TaskInstance) (map[string]int, error) {
	out := make(map[string]int, len(tasks))
	for _, t := range tasks {
		d, _, err := duration.Calculate(t.Base, t, ctx, t.Base.MinCrewsNeeded, minEquipmentAlloc(t.Base))
		if err != nil {
			return nil, err
		}
		out[t.ID] = d
	}
	return out, nil
}

func minEquipmentAlloc(base *catalogue.BaseTask) map[string]int {
	if len(base.MinEquipmentNeeded) == 0 {
		return nil
	}
	alloc := make(map[string]int, len(base.MinEquipmentNeeded))
	for _, req := range base.MinEquipmentNeeded {
		alloc[req.Choice.First()] = req.Units
	}
	return alloc
}

// priorityOrder ranks task ids by (ascending float, ascending ES, ascending
// id) — critical tasks first, earlier tasks first, deterministic tie-break.
func priorityOrder(tasks []*catalogue.TaskInstance, a *cpm.Analysis) map[string]int {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	sort.Slice(ids, func(i, j int) bool {
		fi, fj := a.Float[ids[i]], a.Float[ids[j]]
		if fi != fj {
			return fi < fj
		}
		ei, ej := a.EarlyStart[ids[i]], a.EarlyStart[ids[j]]
		if ei != ej {
			return ei < ej
		}
		return ids[i] < ids[j]
	})
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	return rank
}

func pickBest(ready map[string]bool, rank map[string]int) string {
	best := ""
	bestRank := -1
	for id := range ready {
		r := rank[id]
		if bestRank == -1 || r < bestRank {
			bestRank = r
			best = id
		}
	}
	return best
}

func buildSuccessors(tasks []*catalogue.TaskInstance) map[string][]string {
	out := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, p := range t.Predecessors {
			out[p] = append(out[p], t.ID)
		}
	}
	return out
}

func allScheduled(ids []string, scheduled map[string]bool) bool {
	for _, id := range ids {
		if !scheduled[id] {
			return false
		}
	}
	return true
}

func earliestStart(ctx *catalogue.Context, task *catalogue.TaskInstance, byID map[string]*catalogue.TaskInstance, cal *calendar.Calendar) time.Time {
	earliest := ctx.StartDate
	for _, p := range task.Predecessors {
		pred := byID[p]
		end := pred.EndDate
		if task.Base.Delay > 0 {
			end = cal.AddCalendarDays(end, task.Base.Delay)
		}
		if end.After(earliest) {
			earliest = end
		}
	}
	return earliest
}

// place runs the retry loop: start at the next workday >= earliest, derive
// a tentative window from minimum-resource duration, request allocations,
// and on success recompute the actual duration and re-verify the window
// still fits before committing.
func place(
	ctx *catalogue.Context,
	cal *calendar.Calendar,
	task *catalogue.TaskInstance,
	base *catalogue.BaseTask,
	workerMgr *resources.WorkerManager,
	equipMgr *resources.EquipmentManager,
	earliest time.Time,
) (time.Time, time.Time, int, map[string]int, []PlacementAttempt, error) {
	start := nextWorkday(cal, earliest)
	var attempts []PlacementAttempt

	for i := 0; i < maxPlacementAttempts; i++ {
		dMin, _, err := duration.Calculate(base, task, ctx, base.MinCrewsNeeded, minEquipmentAlloc(base))
		if err != nil {
			return time.Time{}, time.Time{}, 0, nil, attempts, err
		}
		end := cal.AddWorkdays(start, dMin)

		crews := 0
		if needsWorker(base) {
			crews = workerMgr.ComputeAllocation(base, task.Discipline, base.ID, start, end)
			if crews == 0 {
				attempts = append(attempts, PlacementAttempt{Start: start, End: end, Reason: "worker allocation failed"})
				start = nextWorkday(cal, cal.AddCalendarDays(start, 1))
				continue
			}
		}

		var equipAlloc map[string]int
		if needsEquipment(base) {
			equipAlloc = equipMgr.ComputeAllocation(base, task.Discipline, base.ID, start, end)
			if equipAlloc == nil {
				attempts = append(attempts, PlacementAttempt{Start: start, End: end, Reason: "equipment allocation failed"})
				start = nextWorkday(cal, cal.AddCalendarDays(start, 1))
				continue
			}
		}

		dActual, _, err := duration.Calculate(base, task, ctx, crews, equipAlloc)
		if err != nil {
			return time.Time{}, time.Time{}, 0, nil, attempts, err
		}
		if dActual <= dMin {
			// The actual window lies inside [start, end), which the
			// allocations were already checked against.
			return start, cal.AddWorkdays(start, dActual), crews, equipAlloc, attempts, nil
		}

		actualEnd := cal.AddWorkdays(start, dActual)
		stillFits := true
		if needsWorker(base) && workerMgr.ComputeAllocation(base, task.Discipline, base.ID, start, actualEnd) < crews {
			stillFits = false
		}
		if stillFits && needsEquipment(base) {
			recheck := equipMgr.ComputeAllocation(base, task.Discipline, base.ID, start, actualEnd)
			if recheck == nil || sumMap(recheck) < sumMap(equipAlloc) {
				stillFits = false
			}
		}
		if stillFits {
			return start, actualEnd, crews, equipAlloc, attempts, nil
		}

		attempts = append(attempts, PlacementAttempt{Start: start, End: actualEnd, Reason: "actual duration widened window beyond available resources"})
		start = nextWorkday(cal, cal.AddCalendarDays(start, 1))
	}

	detail := "exceeded placement attempt cap"
	if n := len(attempts); n > 0 {
		last := attempts[n-1]
		detail += "; last attempted window " + last.Start.Format("2006-01-02") + " -> " +
			last.End.Format("2006-01-02") + " (" + last.Reason + ")"
	}
	return time.Time{}, time.Time{}, 0, nil, attempts, schederr.New(schederr.KindAllocationStarved, task.ID, detail)
}

func needsWorker(base *catalogue.BaseTask) bool {
	return base.TaskType == catalogue.TaskTypeWorker || base.TaskType == catalogue.TaskTypeHybrid
}

func needsEquipment(base *catalogue.BaseTask) bool {
	return (base.TaskType == catalogue.TaskTypeEquipment || base.TaskType == catalogue.TaskTypeHybrid) && len(base.MinEquipmentNeeded) > 0
}

func sumMap(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

func nextWorkday(cal *calendar.Calendar, d time.Time) time.Time {
	for !cal.IsWorkday(d) {
		d = cal.AddCalendarDays(d, 1)
	}
	return d
}
