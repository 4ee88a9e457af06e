package resources

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conplan/scheduler/internal/catalogue"
)

func singleReq(name string, units int) catalogue.EquipmentRequirement {
	return catalogue.EquipmentRequirement{
		Choice: catalogue.EquipmentChoice{Mode: catalogue.ChoiceSingle, Members: []string{name}},
		Units:  units,
	}
}

func anyOfReq(units int, members ...string) catalogue.EquipmentRequirement {
	return catalogue.EquipmentRequirement{
		Choice: catalogue.EquipmentChoice{Mode: catalogue.ChoiceAnyOf, Members: members},
		Units:  units,
	}
}

func TestEquipmentManager_MeetsMinimumRequirement(t *testing.T) {
	pools := map[string]*catalogue.EquipmentPool{
		"crane": {Name: "crane", Count: 3, HourlyRate: decimal.NewFromInt(100)},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewEquipmentManager(pools, acc)
	base := &catalogue.BaseTask{ID: "lift", MinEquipmentNeeded: []catalogue.EquipmentRequirement{singleReq("crane", 2)}}

	alloc := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	require.NotNil(t, alloc)
	assert.Equal(t, 2, alloc["crane"])
}

func TestEquipmentManager_FailsWhenUnavailable(t *testing.T) {
	pools := map[string]*catalogue.EquipmentPool{
		"crane": {Name: "crane", Count: 1, HourlyRate: decimal.NewFromInt(100)},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewEquipmentManager(pools, acc)
	base := &catalogue.BaseTask{ID: "lift", MinEquipmentNeeded: []catalogue.EquipmentRequirement{singleReq("crane", 2)}}

	alloc := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	assert.Nil(t, alloc)
}

func TestEquipmentManager_MinCostPrefersCheaperAlternative(t *testing.T) {
	pools := map[string]*catalogue.EquipmentPool{
		"cheap_crane":     {Name: "cheap_crane", Count: 5, HourlyRate: decimal.NewFromInt(50)},
		"expensive_crane": {Name: "expensive_crane", Count: 5, HourlyRate: decimal.NewFromInt(200)},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewEquipmentManager(pools, acc)
	base := &catalogue.BaseTask{ID: "lift", MinEquipmentNeeded: []catalogue.EquipmentRequirement{
		anyOfReq(2, "cheap_crane", "expensive_crane"),
	}}

	alloc := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	require.NotNil(t, alloc)
	assert.Equal(t, 2, alloc["cheap_crane"])
	assert.Equal(t, 0, alloc["expensive_crane"])
}

func TestEquipmentManager_AccelerationSpillsToBalancedStage(t *testing.T) {
	pools := map[string]*catalogue.EquipmentPool{
		"cheap_crane":     {Name: "cheap_crane", Count: 2, HourlyRate: decimal.NewFromInt(50)},
		"expensive_crane": {Name: "expensive_crane", Count: 5, HourlyRate: decimal.NewFromInt(200)},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 2, MaxMultiplier: 3}}
	m := NewEquipmentManager(pools, acc)
	base := &catalogue.BaseTask{ID: "lift", MinEquipmentNeeded: []catalogue.EquipmentRequirement{
		anyOfReq(2, "cheap_crane", "expensive_crane"),
	}}

	alloc := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	require.NotNil(t, alloc)
	assert.Equal(t, 2, alloc["cheap_crane"])     // exhausts the cheap pool
	assert.Equal(t, 2, alloc["expensive_crane"]) // accelerated demand spills over
}

func TestEquipmentManager_ReleaseFreesCapacity(t *testing.T) {
	pools := map[string]*catalogue.EquipmentPool{
		"crane": {Name: "crane", Count: 2, HourlyRate: decimal.NewFromInt(100)},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 1, MaxMultiplier: 1}}
	m := NewEquipmentManager(pools, acc)
	base := &catalogue.BaseTask{ID: "lift", MinEquipmentNeeded: []catalogue.EquipmentRequirement{singleReq("crane", 2)}}

	alloc := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	require.NotNil(t, alloc)
	m.Allocate(alloc, "t1", day(0), day(5))
	m.Release("t1")

	alloc2 := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	require.NotNil(t, alloc2)
	assert.Equal(t, 2, alloc2["crane"])
}

// TestEquipmentManager_PerTaskMaxEquipmentCapsAllocation exercises the
// catalogue-specified max_equipment[base_id] cap, keyed by base task id:
// an accelerated demand that would otherwise exhaust the pool must not
// exceed the catalogue's per-base-task cap.
func TestEquipmentManager_PerTaskMaxEquipmentCapsAllocation(t *testing.T) {
	pools := map[string]*catalogue.EquipmentPool{
		"crane": {Name: "crane", Count: 10, HourlyRate: decimal.NewFromInt(100), MaxEquipment: map[string]int{"lift": 2}},
	}
	acc := map[string]catalogue.AccelerationConfig{"default": {Factor: 2, MaxMultiplier: 2}}
	m := NewEquipmentManager(pools, acc)
	base := &catalogue.BaseTask{ID: "lift", MinEquipmentNeeded: []catalogue.EquipmentRequirement{singleReq("crane", 1)}}

	alloc := m.ComputeAllocation(base, "default", base.ID, day(0), day(5))
	require.NotNil(t, alloc)
	assert.Equal(t, 2, alloc["crane"])
}
