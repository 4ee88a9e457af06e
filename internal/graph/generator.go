// Package graph expands the base-task catalogue into per-(zone,floor) task
// instances and resolves the complete predecessor graph: the task
// generator, component C2.
package graph

import (
	"sort"

	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/internal/schederr"
	"github.com/conplan/scheduler/pkg/logger"
)

// Generate expands ctx's base-task catalogue across the zone/floor grid,
// resolves every instance's predecessor list from the five sources spec.md
// §4.2 names, deduplicates, and runs the post-generation validation pass
// (predecessors exist, the graph is acyclic, quantity/productivity defaults
// are patched in). Validation never deletes a task — only patches ctx and
// returns warnings.
func Generate(ctx *catalogue.Context, log logger.Logger) ([]*catalogue.TaskInstance, []catalogue.Warning, error) {
	baseByID := make(map[string]*catalogue.BaseTask)
	for _, list := range ctx.BaseTasks {
		for _, b := range list {
			if b.Included {
				baseByID[b.ID] = b
			}
		}
	}

	// Step 1: the set of all valid instance ids, needed so predecessor
	// resolution can drop references to ids that were never generated.
	instanceIDs := make(map[string]bool)
	for _, list := range ctx.BaseTasks {
		for _, b := range list {
			if !b.Included {
				continue
			}
			for zone, maxFloor := range ctx.ZoneFloors {
				for _, f := range floorRange(b, maxFloor, ctx.GroundDisciplines) {
					instanceIDs[catalogue.NewInstanceID(b.ID, f, zone)] = true
				}
			}
		}
	}

	var instances []*catalogue.TaskInstance
	for discipline, list := range ctx.BaseTasks {
		for _, b := range list {
			if !b.Included {
				continue
			}
			groups, strategy := zoneGroups(ctx, discipline)
			for groupIdx, zoneGroup := range groups {
				for _, zone := range zoneGroup {
					maxFloor, ok := ctx.ZoneFloors[zone]
					if !ok {
						continue
					}
					for _, f := range floorRange(b, maxFloor, ctx.GroundDisciplines) {
						id := catalogue.NewInstanceID(b.ID, f, zone)
						preds := resolvePredecessors(ctx, baseByID, instanceIDs, b, zone, f, groups, strategy, groupIdx)
						instances = append(instances, &catalogue.TaskInstance{
							ID:            id,
							BaseID:        b.ID,
							Name:          b.Name,
							Discipline:    discipline,
							SubDiscipline: b.SubDiscipline,
							Zone:          zone,
							Floor:         f,
							Base:          b,
							Predecessors:  preds,
						})
					}
				}
			}
		}
	}

	// Deterministic downstream ordering: every later pass (priority sort,
	// reporting) sees instances in a stable id order regardless of map
	// iteration order above.
	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })

	warnings, err := validate(ctx, instances, log)
	if err != nil {
		return nil, nil, err
	}
	return instances, warnings, nil
}

// zoneGroups resolves a discipline's zone grouping and sequencing strategy,
// defaulting to a single fully-parallel group over every configured zone
// when no discipline-zone policy is configured.
func zoneGroups(ctx *catalogue.Context, discipline string) ([][]string, catalogue.ZoneStrategy) {
	if cfg, ok := ctx.DisciplineZoneCfg[discipline]; ok {
		return cfg.ZoneGroups, cfg.Strategy
	}
	all := make([]string, 0, len(ctx.ZoneFloors))
	for zone := range ctx.ZoneFloors {
		all = append(all, zone)
	}
	sort.Strings(all)
	return [][]string{all}, catalogue.StrategyFullyParallel
}

func resolvePredecessors(
	ctx *catalogue.Context,
	baseByID map[string]*catalogue.BaseTask,
	instanceIDs map[string]bool,
	base *catalogue.BaseTask,
	zone string,
	floor int,
	groups [][]string,
	strategy catalogue.ZoneStrategy,
	groupIdx int,
) []string {
	seen := make(map[string]bool)
	selfID := catalogue.NewInstanceID(base.ID, floor, zone)
	add := func(id string) {
		if id == "" || id == selfID || seen[id] || !instanceIDs[id] {
			return
		}
		seen[id] = true
	}

	// 1. Same-floor predecessors.
	for _, p := range base.Predecessors {
		predBase, ok := baseByID[p]
		if !ok {
			continue
		}
		predFloor := predecessorFloor(predBase, floor, ctx.GroundDisciplines)
		add(catalogue.NewInstanceID(p, predFloor, zone))
	}

	// 2. Predefined cross-floor links: floor f depends on f-1.
	if floor > 0 {
		for _, p := range ctx.CrossFloorLinks[base.ID] {
			if _, ok := baseByID[p]; ok {
				add(catalogue.NewInstanceID(p, floor-1, zone))
			}
		}
	}

	// 3. User-configured cross-floor dependencies.
	for _, dep := range base.CrossFloorDependencies {
		predFloor := floor + dep.FloorOffset
		if predFloor < 0 {
			continue
		}
		if _, ok := baseByID[dep.TaskID]; ok {
			add(catalogue.NewInstanceID(dep.TaskID, predFloor, zone))
		}
	}

	// 4. Vertical self-chain.
	if floor > 0 && base.CrossFloorRepetition {
		add(catalogue.NewInstanceID(base.ID, floor-1, zone))
	}

	// 5. Cross-zone sequencing.
	if groupIdx > 0 && strategy == catalogue.StrategyGroupSequential {
		for _, prevZone := range groups[groupIdx-1] {
			add(catalogue.NewInstanceID(base.ID, floor, prevZone))
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// validate checks that every predecessor exists and the graph is acyclic,
// then patches missing quantities and productivities with silent warnings.
// It never deletes a task.
func validate(ctx *catalogue.Context, instances []*catalogue.TaskInstance, log logger.Logger) ([]catalogue.Warning, error) {
	byID := make(map[string]*catalogue.TaskInstance, len(instances))
	for _, t := range instances {
		byID[t.ID] = t
	}
	for _, t := range instances {
		for _, p := range t.Predecessors {
			if _, ok := byID[p]; !ok {
				return nil, schederr.New(schederr.KindMissingDependency, t.ID, "predecessor "+p+" was not generated")
			}
		}
	}

	if err := checkAcyclic(instances); err != nil {
		return nil, err
	}

	var warnings []catalogue.Warning

	if ctx.QuantityMatrix == nil {
		ctx.QuantityMatrix = map[string]map[int]map[string]float64{}
	}
	for _, t := range instances {
		byFloor, ok := ctx.QuantityMatrix[t.BaseID]
		if !ok {
			byFloor = map[int]map[string]float64{}
			ctx.QuantityMatrix[t.BaseID] = byFloor
		}
		byZone, ok := byFloor[t.Floor]
		if !ok {
			byZone = map[string]float64{}
			byFloor[t.Floor] = byZone
		}
		if qty, ok := byZone[t.Zone]; !ok || qty <= 0 {
			msg := "no quantity defined for task " + t.ID + ", defaulting to 1"
			byZone[t.Zone] = 1
			warnings = append(warnings, catalogue.Warning{TaskID: t.ID, Message: msg})
			log.Warn(msg, "task_id", t.ID)
		}
	}

	for _, t := range instances {
		if t.Base.TaskType == catalogue.TaskTypeEquipment {
			continue
		}
		pool, ok := ctx.Workers[t.Base.ResourceType]
		if !ok {
			continue
		}
		if pool.ProductivityRates == nil {
			pool.ProductivityRates = map[string]float64{}
		}
		if _, ok := pool.ProductivityRates[t.BaseID]; !ok {
			msg := "no productivity for worker pool " + pool.Name + " on task " + t.ID + ", defaulting to 1"
			pool.ProductivityRates[t.BaseID] = 1
			warnings = append(warnings, catalogue.Warning{TaskID: t.ID, Message: msg})
			log.Warn(msg, "task_id", t.ID, "pool", pool.Name)
		}
	}

	for _, t := range instances {
		for _, req := range t.Base.MinEquipmentNeeded {
			for _, member := range req.Choice.Members {
				pool, ok := ctx.Equipment[member]
				if !ok {
					continue
				}
				if pool.ProductivityRates == nil {
					pool.ProductivityRates = map[string]float64{}
				}
				if _, ok := pool.ProductivityRates[t.BaseID]; !ok {
					msg := "no productivity for equipment " + pool.Name + " on task " + t.ID + ", defaulting to 1"
					pool.ProductivityRates[t.BaseID] = 1
					warnings = append(warnings, catalogue.Warning{TaskID: t.ID, Message: msg})
					log.Warn(msg, "task_id", t.ID, "equipment", pool.Name)
				}
			}
		}
	}

	return warnings, nil
}

// checkAcyclic runs a Kahn topological sort purely to detect cycles; the
// graph analyzer (internal/cpm) owns the scheduling-relevant traversal.
func checkAcyclic(instances []*catalogue.TaskInstance) error {
	indeg := make(map[string]int, len(instances))
	adj := make(map[string][]string, len(instances))
	for _, t := range instances {
		if _, ok := indeg[t.ID]; !ok {
			indeg[t.ID] = 0
		}
		for _, p := range t.Predecessors {
			adj[p] = append(adj[p], t.ID)
			indeg[t.ID]++
		}
	}

	queue := make([]string, 0)
	for _, t := range instances {
		if indeg[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}
	sort.Strings(queue)

	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
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

	if visited != len(instances) {
		return schederr.New(schederr.KindGraphCycle, "", "predecessor graph contains a cycle")
	}
	return nil
}
