package resources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conplan/scheduler/internal/catalogue"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestWorkerManager_AllocatesWithinPool(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{"crew": {Name: "crew", Count: 5}}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 2, TaskType: catalogue.TaskTypeWorker}

	got := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	assert.Equal(t, 2, got)
}

func TestWorkerManager_AccelerationIncreasesAllocation(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{"crew": {Name: "crew", Count: 10}}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 2, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 2, TaskType: catalogue.TaskTypeWorker}

	got := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	assert.Equal(t, 4, got)
}

func TestWorkerManager_FailsBelowMinimum(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{"crew": {Name: "crew", Count: 1}}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 2, TaskType: catalogue.TaskTypeWorker}

	got := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	assert.Equal(t, 0, got)
}

func TestWorkerManager_NonOverlappingWindowsDoNotContend(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{"crew": {Name: "crew", Count: 2}}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 2, TaskType: catalogue.TaskTypeWorker}

	units := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	require.Equal(t, 2, units)
	m.Allocate("crew", "t1", units, day(0), day(5))

	got := m.ComputeAllocation(base, "default", base.ID, day(5), day(10))
	assert.Equal(t, 2, got)
}

func TestWorkerManager_OverlappingWindowsContend(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{"crew": {Name: "crew", Count: 2}}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 2, TaskType: catalogue.TaskTypeWorker}

	m.Allocate("crew", "t1", 2, day(0), day(5))
	got := m.ComputeAllocation(base, "default", base.ID, day(2), day(7))
	assert.Equal(t, 0, got)
}

func TestWorkerManager_ReleaseFreesCapacity(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{"crew": {Name: "crew", Count: 2}}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 2, TaskType: catalogue.TaskTypeWorker}

	m.Allocate("crew", "t1", 2, day(0), day(5))
	m.Release("t1")
	got := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	assert.Equal(t, 2, got)
}

// TestWorkerManager_PerTaskMaxCrewsCapsBelowLegacyDefault exercises the
// catalogue-specified max_crews[base_id] cap, keyed by base task id (not
// task instance id): a pool with ample count and an accelerated candidate
// still must not exceed the catalogue's cap for this base task.
func TestWorkerManager_PerTaskMaxCrewsCapsBelowLegacyDefault(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{
		"crew": {Name: "crew", Count: 20, MaxCrews: map[string]int{"excavate": 3}},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 5, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 1, TaskType: catalogue.TaskTypeWorker}

	got := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	assert.Equal(t, 3, got)
}

// TestWorkerManager_MaxCrewsLookupIgnoresTaskInstanceID looks the cap up by
// base.ID ("excavate"), not by a task instance id: with max_crews 3 for that
// base id and a candidate of 2 crews (minimum 2, factor 1), the allocation
// stays at 2.
func TestWorkerManager_MaxCrewsLookupIgnoresTaskInstanceID(t *testing.T) {
	pools := map[string]*catalogue.WorkerPool{
		"crew": {Name: "crew", Count: 20, MaxCrews: map[string]int{"excavate": 3}},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewWorkerManager(pools, acc)
	base := &catalogue.BaseTask{ID: "excavate", ResourceType: "crew", MinCrewsNeeded: 2, TaskType: catalogue.TaskTypeWorker}

	got := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	assert.Equal(t, 2, got)
}
