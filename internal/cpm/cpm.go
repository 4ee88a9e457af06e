// Package cpm implements the Critical Path Method graph analyzer,
// component C3: forward/backward pass, float, and critical-path
// enumeration over a set of task instances and an externally supplied
// duration function.
package cpm

import (
	"sort"

	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/internal/schederr"
)

// Analysis is the full result of one CPM pass: per-task ES/EF/LS/LF/float
// plus the project's overall duration and its critical paths.
type Analysis struct {
	EarlyStart  map[string]int
	EarlyFinish map[string]int
	LateStart   map[string]int
	LateFinish  map[string]int
	Float       map[string]int

	ProjectDuration int
	CriticalTasks   map[string]bool
	CriticalPaths   [][]string
}

// DurationFunc resolves a task instance's duration in workdays. The
// scheduler supplies the actual resource-bound duration; priority
// computation supplies the minimum-resource duration.
type DurationFunc func(taskID string) int

// Analyze runs a complete forward/backward CPM pass. It is fully
// re-entrant: every call rebuilds its state from tasks and duration, so the
// same analyzer can be invoked repeatedly as the scheduler recomputes
// durations under different resource allocations.
func Analyze(tasks []*catalogue.TaskInstance, duration DurationFunc) (*Analysis, error) {
	byID := make(map[string]*catalogue.TaskInstance, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	order, err := topoOrder(tasks, byID)
	if err != nil {
		return nil, err
	}

	successors := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, p := range t.Predecessors {
			successors[p] = append(successors[p], t.ID)
		}
	}

	a := &Analysis{
		EarlyStart:  make(map[string]int, len(tasks)),
		EarlyFinish: make(map[string]int, len(tasks)),
		LateStart:   make(map[string]int, len(tasks)),
		LateFinish:  make(map[string]int, len(tasks)),
		Float:       make(map[string]int, len(tasks)),
	}

	// Forward pass: ES = max(EF of predecessors), EF = ES + duration.
	for _, id := range order {
		t := byID[id]
		es := 0
		for _, p := range t.Predecessors {
			if ef := a.EarlyFinish[p]; ef > es {
				es = ef
			}
		}
		a.EarlyStart[id] = es
		a.EarlyFinish[id] = es + duration(id)
		if a.EarlyFinish[id] > a.ProjectDuration {
			a.ProjectDuration = a.EarlyFinish[id]
		}
	}

	// Backward pass, in reverse topological order: LF = min(LS of
	// successors), defaulting to the project duration for sinks.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		lf := a.ProjectDuration
		if succ := successors[id]; len(succ) > 0 {
			lf = a.LateStart[succ[0]]
			for _, s := range succ[1:] {
				if ls := a.LateStart[s]; ls < lf {
					lf = ls
				}
			}
		}
		a.LateFinish[id] = lf
		a.LateStart[id] = lf - duration(id)
		a.Float[id] = a.LateStart[id] - a.EarlyStart[id]
	}

	a.CriticalTasks = make(map[string]bool)
	for id, f := range a.Float {
		if f == 0 {
			a.CriticalTasks[id] = true
		}
	}
	a.CriticalPaths = criticalPaths(tasks, byID, successors, a)

	return a, nil
}

// topoOrder runs a deterministic Kahn topological sort: the initial sources
// and each batch of newly released nodes are queued in id order, so the
// same graph always yields the same order.
func topoOrder(tasks []*catalogue.TaskInstance, byID map[string]*catalogue.TaskInstance) ([]string, error) {
	indeg := make(map[string]int, len(tasks))
	adj := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		if _, ok := indeg[t.ID]; !ok {
			indeg[t.ID] = 0
		}
		for _, p := range t.Predecessors {
			adj[p] = append(adj[p], t.ID)
			indeg[t.ID]++
		}
	}

	var queue []string
	for id, d := range indeg {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(tasks))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		var next []string
		for _, s := range adj[cur] {
			indeg[s]--
			if indeg[s] == 0 {
				next = append(next, s)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	if len(order) != len(tasks) {
		return nil, schederr.New(schederr.KindGraphCycle, "", "task graph contains a cycle")
	}
	return order, nil
}

// criticalPaths enumerates every maximal chain of critical tasks from a
// source (no critical predecessor) to a sink (no critical successor) via
// depth-first search.
func criticalPaths(tasks []*catalogue.TaskInstance, byID map[string]*catalogue.TaskInstance, successors map[string][]string, a *Analysis) [][]string {
	var sources []string
	for _, t := range tasks {
		if !a.CriticalTasks[t.ID] {
			continue
		}
		hasCriticalPred := false
		for _, p := range t.Predecessors {
			if a.CriticalTasks[p] {
				hasCriticalPred = true
				break
			}
		}
		if !hasCriticalPred {
			sources = append(sources, t.ID)
		}
	}
	sort.Strings(sources)

	var paths [][]string
	var walk func(id string, prefix []string)
	walk = func(id string, prefix []string) {
		path := append(append([]string{}, prefix...), id)
		var criticalSucc []string
		for _, s := range successors[id] {
			if a.CriticalTasks[s] {
				criticalSucc = append(criticalSucc, s)
			}
		}
		sort.Strings(criticalSucc)
		if len(criticalSucc) == 0 {
			paths = append(paths, path)
			return
		}
		for _, s := range criticalSucc {
			walk(s, path)
		}
	}
	for _, s := range sources {
		walk(s, nil)
	}
	return paths
}
