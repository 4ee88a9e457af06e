package resources

import (
	"math"
	"time"

	"github.com/conplan/scheduler/internal/catalogue"
)

// WorkerManager tracks crew reservations per resource pool and implements
// the flexible allocation policy: allocate up to ceil(min*factor) crews,
// capped by the per-task/legacy pool max and by what's actually free in the
// window, failing only if even the minimum cannot be met.
type WorkerManager struct {
	pools        map[string]*catalogue.WorkerPool
	acceleration map[string]catalogue.AccelerationConfig
	allocations  map[string][]reservation // resource name -> reservations
}

// legacyMaxCrews is the fallback pool cap when a pool defines no max_crews
// entry for a task, mirroring the original system's hardcoded ceiling.
const legacyMaxCrews = 25

func NewWorkerManager(pools map[string]*catalogue.WorkerPool, acceleration map[string]catalogue.AccelerationConfig) *WorkerManager {
	return &WorkerManager{
		pools:        pools,
		acceleration: acceleration,
		allocations:  make(map[string][]reservation),
	}
}

func (m *WorkerManager) accelerationFor(discipline string) catalogue.AccelerationConfig {
	if cfg, ok := m.acceleration[discipline]; ok {
		return cfg
	}
	return m.acceleration["default"]
}

// ComputeAllocation returns the number of crews to allocate for a task in
// [start, end): at least min_crews_needed, at most the accelerated
// candidate capped by the pool's max and by availability. Returns 0 if the
// minimum cannot be satisfied. baseID indexes max_crews, which the
// catalogue keys by base task id, never by task instance id.
func (m *WorkerManager) ComputeAllocation(base *catalogue.BaseTask, discipline, baseID string, start, end time.Time) int {
	if base.TaskType == catalogue.TaskTypeEquipment {
		return 0
	}
	pool, ok := m.pools[base.ResourceType]
	if !ok {
		return 0
	}

	minNeeded := base.MinCrewsNeeded
	if minNeeded < 1 {
		minNeeded = 1
	}

	factor := m.accelerationFor(discipline).Factor
	if factor <= 0 {
		factor = 1
	}
	candidate := int(math.Ceil(float64(minNeeded) * factor))

	poolMax := legacyMaxCrews
	if pool.MaxCrews != nil {
		if taskMax, ok := pool.MaxCrews[baseID]; ok {
			poolMax = taskMax
		}
	}
	if candidate > poolMax {
		candidate = poolMax
	}

	used := usedUnits(m.allocations[base.ResourceType], start, end)
	available := pool.Count - used
	if available < 0 {
		available = 0
	}

	allocated := candidate
	if available < allocated {
		allocated = available
	}
	if allocated < minNeeded {
		return 0
	}
	return allocated
}

// Allocate commits a reservation of exactly units crews for [start, end).
func (m *WorkerManager) Allocate(resourceType, taskID string, units int, start, end time.Time) int {
	if units <= 0 {
		return 0
	}
	m.allocations[resourceType] = append(m.allocations[resourceType], reservation{taskID: taskID, units: units, start: start, end: end})
	return units
}

// Release drops every reservation associated with taskID across all pools.
func (m *WorkerManager) Release(taskID string) {
	for res, list := range m.allocations {
		m.allocations[res] = releaseTask(list, taskID)
	}
}
