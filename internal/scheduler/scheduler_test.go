package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewDefaultLogger("scheduler_test", "ERROR")
}

func mondayFriday() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

// A two-task chain on a single zone/floor: excavate then pour, one crew
// pool shared by both disciplines.
func chainCtx() *catalogue.Context {
	return &catalogue.Context{
		BaseTasks: map[string][]*catalogue.BaseTask{
			"earthworks": {
				{ID: "excavate", Name: "Excavate", Discipline: "earthworks", ResourceType: "crew",
					TaskType: catalogue.TaskTypeWorker, MinCrewsNeeded: 1,
					AppliesToFloors: catalogue.FloorsGroundOnly, Included: true},
			},
			"concrete": {
				{ID: "pour", Name: "Pour", Discipline: "concrete", ResourceType: "crew",
					TaskType: catalogue.TaskTypeWorker, MinCrewsNeeded: 1,
					Predecessors:    []string{"excavate"},
					AppliesToFloors: catalogue.FloorsGroundOnly, Included: true},
			},
		},
		ZoneFloors: catalogue.ZoneGrid{"A": 0},
		QuantityMatrix: map[string]map[int]map[string]float64{
			"excavate": {0: {"A": 10}},
			"pour":     {0: {"A": 10}},
		},
		Workers: map[string]*catalogue.WorkerPool{
			"crew": {Name: "crew", Count: 1,
				ProductivityRates: map[string]float64{"excavate": 10, "pour": 10}},
		},
		Equipment:         map[string]*catalogue.EquipmentPool{},
		Acceleration:      map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}},
		ShiftConfig:       map[string]float64{"default": 1.0},
		GroundDisciplines: map[string]bool{},
		StartDate:         time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), // Monday
		Workweek:          mondayFriday(),
		RunID:             "test-run",
	}
}

func TestRun_SchedulesChainSequentially(t *testing.T) {
	ctx := chainCtx()
	sched, err := Run(ctx, testLogger())
	require.NoError(t, err)
	require.Len(t, sched.Tasks, 2)

	byBaseID := make(map[string]*catalogue.TaskInstance)
	for _, ti := range sched.Tasks {
		byBaseID[ti.BaseID] = ti
	}
	excavate := byBaseID["excavate"]
	pour := byBaseID["pour"]
	require.True(t, excavate.Scheduled())
	require.True(t, pour.Scheduled())
	assert.False(t, pour.StartDate.Before(excavate.EndDate))
}

func TestRun_NoOverlapOnSharedCrewPool(t *testing.T) {
	ctx := chainCtx()
	sched, err := Run(ctx, testLogger())
	require.NoError(t, err)

	byBaseID := make(map[string]*catalogue.TaskInstance)
	for _, ti := range sched.Tasks {
		byBaseID[ti.BaseID] = ti
	}
	excavate := byBaseID["excavate"]
	pour := byBaseID["pour"]
	overlap := !(pour.StartDate.After(excavate.EndDate) || pour.StartDate.Equal(excavate.EndDate)) &&
		!(excavate.StartDate.After(pour.EndDate) || excavate.StartDate.Equal(pour.EndDate))
	assert.False(t, overlap)
}

func TestRun_Deterministic(t *testing.T) {
	a, err := Run(chainCtx(), testLogger())
	require.NoError(t, err)
	b, err := Run(chainCtx(), testLogger())
	require.NoError(t, err)

	require.Equal(t, len(a.Tasks), len(b.Tasks))
	for i := range a.Tasks {
		assert.Equal(t, a.Tasks[i].ID, b.Tasks[i].ID)
		assert.True(t, a.Tasks[i].StartDate.Equal(b.Tasks[i].StartDate))
		assert.True(t, a.Tasks[i].EndDate.Equal(b.Tasks[i].EndDate))
	}
}

func TestRun_ResourceContentionSerializesThreeTasks(t *testing.T) {
	ctx := &catalogue.Context{
		BaseTasks: map[string][]*catalogue.BaseTask{
			"earthworks": {
				{ID: "t1", Name: "T1", Discipline: "earthworks", ResourceType: "crew",
					TaskType: catalogue.TaskTypeWorker, MinCrewsNeeded: 1,
					AppliesToFloors: catalogue.FloorsGroundOnly, Included: true},
				{ID: "t2", Name: "T2", Discipline: "earthworks", ResourceType: "crew",
					TaskType: catalogue.TaskTypeWorker, MinCrewsNeeded: 1,
					AppliesToFloors: catalogue.FloorsGroundOnly, Included: true},
				{ID: "t3", Name: "T3", Discipline: "earthworks", ResourceType: "crew",
					TaskType: catalogue.TaskTypeWorker, MinCrewsNeeded: 1,
					AppliesToFloors: catalogue.FloorsGroundOnly, Included: true},
			},
		},
		ZoneFloors: catalogue.ZoneGrid{"A": 0},
		QuantityMatrix: map[string]map[int]map[string]float64{
			"t1": {0: {"A": 10}}, "t2": {0: {"A": 10}}, "t3": {0: {"A": 10}},
		},
		Workers: map[string]*catalogue.WorkerPool{
			"crew": {Name: "crew", Count: 1,
				ProductivityRates: map[string]float64{"t1": 10, "t2": 10, "t3": 10}},
		},
		Equipment:         map[string]*catalogue.EquipmentPool{},
		Acceleration:      map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}},
		ShiftConfig:       map[string]float64{"default": 1.0},
		GroundDisciplines: map[string]bool{},
		StartDate:         time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Workweek:          mondayFriday(),
	}

	sched, err := Run(ctx, testLogger())
	require.NoError(t, err)
	require.Len(t, sched.Tasks, 3)

	starts := make([]time.Time, 3)
	for i, ti := range sched.Tasks {
		starts[i] = ti.StartDate
	}
	assert.False(t, starts[0].Equal(starts[1]) && starts[1].Equal(starts[2]), "three single-resource tasks must not all start together")
}
