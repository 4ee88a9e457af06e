package cpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conplan/scheduler/internal/catalogue"
)

// A -> B -> D
// A -> C -> D, C is shorter so B-D is the critical chain.
func diamond() []*catalogue.TaskInstance {
	return []*catalogue.TaskInstance{
		{ID: "A"},
		{ID: "B", Predecessors: []string{"A"}},
		{ID: "C", Predecessors: []string{"A"}},
		{ID: "D", Predecessors: []string{"B", "C"}},
	}
}

func diamondDuration(durations map[string]int) DurationFunc {
	return func(id string) int { return durations[id] }
}

func TestAnalyze_ForwardPassAndProjectDuration(t *testing.T) {
	tasks := diamond()
	durations := map[string]int{"A": 2, "B": 5, "C": 1, "D": 3}
	a, err := Analyze(tasks, diamondDuration(durations))
	require.NoError(t, err)

	assert.Equal(t, 0, a.EarlyStart["A"])
	assert.Equal(t, 2, a.EarlyFinish["A"])
	assert.Equal(t, 2, a.EarlyStart["B"])
	assert.Equal(t, 7, a.EarlyFinish["B"])
	assert.Equal(t, 2, a.EarlyStart["C"])
	assert.Equal(t, 3, a.EarlyFinish["C"])
	assert.Equal(t, 7, a.EarlyStart["D"]) // max(EF(B), EF(C))
	assert.Equal(t, 10, a.EarlyFinish["D"])
	assert.Equal(t, 10, a.ProjectDuration)
}

func TestAnalyze_CriticalPathViaLongerBranch(t *testing.T) {
	tasks := diamond()
	durations := map[string]int{"A": 2, "B": 5, "C": 1, "D": 3}
	a, err := Analyze(tasks, diamondDuration(durations))
	require.NoError(t, err)

	assert.True(t, a.CriticalTasks["A"])
	assert.True(t, a.CriticalTasks["B"])
	assert.True(t, a.CriticalTasks["D"])
	assert.False(t, a.CriticalTasks["C"])
	assert.Greater(t, a.Float["C"], 0)
}

func TestAnalyze_CriticalPathEnumeration(t *testing.T) {
	tasks := diamond()
	durations := map[string]int{"A": 2, "B": 5, "C": 1, "D": 3}
	a, err := Analyze(tasks, diamondDuration(durations))
	require.NoError(t, err)

	require.Len(t, a.CriticalPaths, 1)
	assert.Equal(t, []string{"A", "B", "D"}, a.CriticalPaths[0])
}

func TestAnalyze_ZeroFloatOnSingleChain(t *testing.T) {
	tasks := []*catalogue.TaskInstance{
		{ID: "X"},
		{ID: "Y", Predecessors: []string{"X"}},
	}
	a, err := Analyze(tasks, diamondDuration(map[string]int{"X": 4, "Y": 6}))
	require.NoError(t, err)
	assert.Equal(t, 0, a.Float["X"])
	assert.Equal(t, 0, a.Float["Y"])
}

func TestAnalyze_CycleReturnsError(t *testing.T) {
	tasks := []*catalogue.TaskInstance{
		{ID: "X", Predecessors: []string{"Y"}},
		{ID: "Y", Predecessors: []string{"X"}},
	}
	_, err := Analyze(tasks, diamondDuration(nil))
	require.Error(t, err)
}

func TestAnalyze_Reentrant(t *testing.T) {
	tasks := diamond()
	durations := map[string]int{"A": 2, "B": 5, "C": 1, "D": 3}
	a1, err := Analyze(tasks, diamondDuration(durations))
	require.NoError(t, err)
	a2, err := Analyze(tasks, diamondDuration(durations))
	require.NoError(t, err)
	assert.Equal(t, a1.ProjectDuration, a2.ProjectDuration)
	assert.Equal(t, a1.Float, a2.Float)
}
