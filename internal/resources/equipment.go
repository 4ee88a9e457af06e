package resources

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/conplan/scheduler/internal/catalogue"
)

// EquipmentManager tracks equipment reservations per pool and implements
// the two-stage allocation strategy: stage one satisfies the minimum
// requirement optimizing for lowest hourly rate (min_cost); stage two
// spends any remaining accelerated demand optimizing a 0.7/0.3 blend of
// rate and remaining capacity (balanced), so idle capacity is spread
// rather than piled onto the cheapest unit.
type EquipmentManager struct {
	pools        map[string]*catalogue.EquipmentPool
	acceleration map[string]catalogue.AccelerationConfig
	allocations  map[string][]reservation
}

func NewEquipmentManager(pools map[string]*catalogue.EquipmentPool, acceleration map[string]catalogue.AccelerationConfig) *EquipmentManager {
	return &EquipmentManager{
		pools:        pools,
		acceleration: acceleration,
		allocations:  make(map[string][]reservation),
	}
}

func (m *EquipmentManager) accelerationFor(discipline string) catalogue.AccelerationConfig {
	if cfg, ok := m.acceleration[discipline]; ok {
		return cfg
	}
	return m.acceleration["default"]
}

type equipmentAnalysis struct {
	name              string
	allocatableUnits  int
	hourlyRate        decimal.Decimal
}

// ComputeAllocation resolves a per-equipment-name unit map satisfying every
// requirement of base in [start, end), or nil if any requirement's
// alternatives cannot together meet its minimum. baseID indexes
// max_equipment, which the catalogue keys by base task id, never by task
// instance id.
func (m *EquipmentManager) ComputeAllocation(base *catalogue.BaseTask, discipline, baseID string, start, end time.Time) map[string]int {
	if len(base.MinEquipmentNeeded) == 0 {
		return map[string]int{}
	}

	final := make(map[string]int)
	for _, req := range base.MinEquipmentNeeded {
		minRequired := req.Units
		if minRequired < 1 {
			minRequired = 1
		}
		target := m.acceleratedDemand(minRequired, discipline)

		analysis := m.analyzeAvailability(req.Choice.Members, baseID, start, end)
		if analysis == nil {
			return nil
		}

		alloc := m.allocateRequirement(analysis, minRequired, target)
		if alloc == nil {
			return nil
		}
		for name, units := range alloc {
			final[name] += units
		}
	}
	return final
}

func (m *EquipmentManager) acceleratedDemand(minRequired int, discipline string) int {
	cfg := m.accelerationFor(discipline)
	factor := cfg.Factor
	if factor <= 0 {
		factor = 1
	}
	maxMultiplier := cfg.MaxMultiplier
	if maxMultiplier <= 0 {
		maxMultiplier = 3
	}
	accelerated := int(math.Ceil(float64(minRequired) * factor))
	cap := int(float64(minRequired) * maxMultiplier)
	if accelerated > cap {
		return cap
	}
	return accelerated
}

func (m *EquipmentManager) analyzeAvailability(members []string, baseID string, start, end time.Time) []equipmentAnalysis {
	var out []equipmentAnalysis
	total := 0
	for _, name := range members {
		pool, ok := m.pools[name]
		if !ok {
			continue
		}
		used := usedUnits(m.allocations[name], start, end)
		available := pool.Count - used
		if available < 0 {
			available = 0
		}
		maxPerTask := pool.Count
		if pool.MaxEquipment != nil {
			if v, ok := pool.MaxEquipment[baseID]; ok {
				maxPerTask = v
			}
		}
		allocatable := available
		if maxPerTask < allocatable {
			allocatable = maxPerTask
		}
		out = append(out, equipmentAnalysis{name: name, allocatableUnits: allocatable, hourlyRate: pool.HourlyRate})
		total += allocatable
	}
	if total < 1 {
		return nil
	}
	return out
}

// allocateRequirement runs the two-stage allocation over one requirement's
// equipment alternatives.
func (m *EquipmentManager) allocateRequirement(analysis []equipmentAnalysis, minRequired, target int) map[string]int {
	minAlloc := allocateSet(analysis, minRequired, nil, scoreMinCost)
	if minAlloc == nil || sum(minAlloc) < minRequired {
		return nil
	}

	remaining := remainingCapacity(analysis, minAlloc)
	additionalDemand := target - sum(minAlloc)
	if additionalDemand > 0 && remaining > 0 {
		// allocateSet seeds its result from minAlloc and tops each member up
		// to the additional demand, so its return value is already the full
		// post-acceleration allocation, not a delta to add on top of minAlloc.
		if extra := allocateSet(analysis, additionalDemand, minAlloc, scoreBalanced); extra != nil {
			minAlloc = extra
		}
	}
	return minAlloc
}

type scoreFunc func(a equipmentAnalysis, remaining int) decimal.Decimal

func scoreMinCost(a equipmentAnalysis, remaining int) decimal.Decimal {
	return a.hourlyRate
}

// scoreBalanced blends cost and remaining capacity 0.7/0.3 so demand spreads
// across alternatives rather than exhausting the cheapest one first.
func scoreBalanced(a equipmentAnalysis, remaining int) decimal.Decimal {
	rateWeight := a.hourlyRate.Mul(decimal.NewFromFloat(0.7))
	capacityWeight := decimal.NewFromInt(int64(-remaining)).Mul(decimal.NewFromFloat(0.3))
	return rateWeight.Add(capacityWeight)
}

func allocateSet(analysis []equipmentAnalysis, demand int, existing map[string]int, score scoreFunc) map[string]int {
	alloc := make(map[string]int, len(analysis))
	for name, units := range existing {
		alloc[name] = units
	}

	type scored struct {
		a     equipmentAnalysis
		score decimal.Decimal
	}
	var ordered []scored
	for _, a := range analysis {
		remaining := a.allocatableUnits - alloc[a.name]
		if remaining <= 0 {
			continue
		}
		ordered = append(ordered, scored{a: a, score: score(a, remaining)})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].score.LessThan(ordered[j].score) })

	remainingDemand := demand
	for _, s := range ordered {
		if remainingDemand <= 0 {
			break
		}
		current := alloc[s.a.name]
		maxPossible := s.a.allocatableUnits - current
		if maxPossible <= 0 {
			continue
		}
		take := maxPossible
		if remainingDemand < take {
			take = remainingDemand
		}
		alloc[s.a.name] = current + take
		remainingDemand -= take
	}

	if remainingDemand != 0 {
		return nil
	}
	return alloc
}

func remainingCapacity(analysis []equipmentAnalysis, current map[string]int) int {
	total := 0
	for _, a := range analysis {
		rem := a.allocatableUnits - current[a.name]
		if rem > 0 {
			total += rem
		}
	}
	return total
}

func sum(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// Allocate commits an explicit {equipment_name: units} allocation for
// [start, end).
func (m *EquipmentManager) Allocate(allocation map[string]int, taskID string, start, end time.Time) map[string]int {
	for name, units := range allocation {
		if units <= 0 {
			continue
		}
		m.allocations[name] = append(m.allocations[name], reservation{taskID: taskID, units: units, start: start, end: end})
	}
	return allocation
}

// Release drops every reservation associated with taskID across all pools.
func (m *EquipmentManager) Release(taskID string) {
	for name, list := range m.allocations {
		m.allocations[name] = releaseTask(list, taskID)
	}
}
