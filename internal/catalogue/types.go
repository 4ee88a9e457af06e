// Package catalogue holds the value types the scheduling engine is built
// from: the parameterised base-task catalogue, resource pools, the
// zone/floor grid, and the SchedulingContext that bundles them for a single
// run. Every type here has a fixed, totally-specified shape — no
// dynamic-attribute access with ad hoc defaults — so a task's behaviour
// never depends on which fields happened to be set by the caller.
package catalogue

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskType determines which resource managers a task instance must satisfy.
type TaskType string

const (
	TaskTypeWorker    TaskType = "worker"
	TaskTypeEquipment TaskType = "equipment"
	TaskTypeHybrid    TaskType = "hybrid"
)

// AppliesToFloors controls which floors a base task is instantiated on.
type AppliesToFloors string

const (
	FloorsAuto        AppliesToFloors = "auto"
	FloorsGroundOnly  AppliesToFloors = "ground_only"
	FloorsAboveGround AppliesToFloors = "above_ground"
	FloorsAllFloors   AppliesToFloors = "all_floors"
)

// EquipmentChoiceMode tags whether an equipment requirement names a single
// piece of equipment or a set of interchangeable alternatives.
type EquipmentChoiceMode string

const (
	ChoiceSingle EquipmentChoiceMode = "single"
	ChoiceAnyOf  EquipmentChoiceMode = "any_of"
)

// EquipmentChoice replaces the heterogeneous dict-key pattern (a mapping
// keyed by either a single equipment name or a tuple of alternatives) found
// in the original system with a tagged, order-preserving record.
type EquipmentChoice struct {
	Mode    EquipmentChoiceMode `yaml:"mode"`
	Members []string            `yaml:"members"`
}

// First returns the first member, the equipment the duration calculator
// bottlenecks its rate lookup on (spec: "the first equipment choice").
func (c EquipmentChoice) First() string {
	if len(c.Members) == 0 {
		return ""
	}
	return c.Members[0]
}

// EquipmentRequirement is one entry of a base task's min_equipment_needed.
// Requirements are kept as a slice, never a map, so iteration order — and
// therefore which choice is "first" — is preserved end to end.
type EquipmentRequirement struct {
	Choice EquipmentChoice `yaml:"choice"`
	Units  int             `yaml:"units"`
}

// CrossFloorDependency is a user-configured cross-floor predecessor link.
type CrossFloorDependency struct {
	TaskID      string `yaml:"task_id"`
	FloorOffset int    `yaml:"floor_offset"` // negative means "floor below"; an omitted offset is 0 (same floor), no -1 default is applied
}

// BaseTask is a catalogue entry: a parameterised template, not yet placed
// in time or space.
type BaseTask struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Discipline    string `json:"discipline" yaml:"discipline"`
	SubDiscipline string `json:"sub_discipline,omitempty" yaml:"sub_discipline,omitempty"`

	ResourceType string   `json:"resource_type" yaml:"resource_type"`
	TaskType     TaskType `json:"task_type" yaml:"task_type"`

	// BaseDuration, when non-nil, overrides the duration calculator entirely.
	BaseDuration *float64 `json:"base_duration,omitempty" yaml:"base_duration,omitempty"`

	MinCrewsNeeded     int                    `json:"min_crews_needed" yaml:"min_crews_needed"`
	MinEquipmentNeeded []EquipmentRequirement `json:"min_equipment_needed,omitempty" yaml:"min_equipment_needed,omitempty"`

	Predecessors           []string               `json:"predecessors,omitempty" yaml:"predecessors,omitempty"`
	CrossFloorDependencies []CrossFloorDependency `json:"cross_floor_dependencies,omitempty" yaml:"cross_floor_dependencies,omitempty"`

	AppliesToFloors AppliesToFloors `json:"applies_to_floors" yaml:"applies_to_floors"`

	RepeatOnFloor        bool `json:"repeat_on_floor" yaml:"repeat_on_floor"`
	CrossFloorRepetition bool `json:"cross_floor_repetition" yaml:"cross_floor_repetition"`

	Delay    int  `json:"delay" yaml:"delay"`
	Included bool `json:"included" yaml:"included"`
}

// WorkerPool is a crew resource: a bounded number of concurrently available
// crew units, with per-base-task productivity rates and crew caps.
type WorkerPool struct {
	Name              string             `json:"name" yaml:"name"`
	Count             int                `json:"count" yaml:"count"`
	ProductivityRates map[string]float64 `json:"productivity_rates" yaml:"productivity_rates"`
	MaxCrews          map[string]int     `json:"max_crews,omitempty" yaml:"max_crews,omitempty"`
}

// EquipmentPool is an equipment resource: a bounded number of interchangeable
// units, with per-base-task productivity rates, equipment caps, an
// efficiency multiplier (hybrid-task bottleneck math), and an hourly rate
// used for the cost-aware allocation tie-break.
type EquipmentPool struct {
	Name              string             `json:"name" yaml:"name"`
	Count             int                `json:"count" yaml:"count"`
	ProductivityRates map[string]float64 `json:"productivity_rates" yaml:"productivity_rates"`
	MaxEquipment      map[string]int     `json:"max_equipment,omitempty" yaml:"max_equipment,omitempty"`
	Efficiency        float64            `json:"efficiency" yaml:"efficiency"`
	HourlyRate        decimal.Decimal    `json:"hourly_rate" yaml:"hourly_rate"`
}

// ZoneGrid maps a zone name to its highest floor index (0 = ground floor).
type ZoneGrid map[string]int

// ZoneStrategy is the cross-zone sequencing policy within a discipline.
type ZoneStrategy string

const (
	StrategySequential     ZoneStrategy = "sequential"
	StrategyFullyParallel  ZoneStrategy = "fully_parallel"
	StrategyGroupSequential ZoneStrategy = "group_sequential"
)

// DisciplineZonePolicy groups a discipline's zones into ordered groups and
// names the sequencing strategy between groups.
type DisciplineZonePolicy struct {
	ZoneGroups [][]string   `json:"zone_groups" yaml:"zone_groups"`
	Strategy   ZoneStrategy `json:"strategy" yaml:"strategy"`
}

// AccelerationConfig inflates the desired crew/equipment count above the
// task minimum, bounded by MaxMultiplier. A "default" key is required by
// every caller (spec §9 Open Questions).
type AccelerationConfig struct {
	Factor        float64 `json:"factor" yaml:"factor"`
	MaxMultiplier float64 `json:"max_multiplier" yaml:"max_multiplier"`
}

// Context bundles every input a scheduling run needs into one explicit
// value, replacing module-level singletons and global mutable dictionaries
// with a value passed into every component — no process-global state.
type Context struct {
	BaseTasks      map[string][]*BaseTask // discipline -> base tasks
	ZoneFloors     ZoneGrid
	QuantityMatrix map[string]map[int]map[string]float64 // base_id -> floor -> zone -> qty

	Workers   map[string]*WorkerPool
	Equipment map[string]*EquipmentPool

	StartDate time.Time
	Holidays  []time.Time
	Workweek  []time.Weekday

	CrossFloorLinks map[string][]string // base_id -> predecessor base ids, floor f depends on f-1

	Acceleration map[string]AccelerationConfig // discipline -> config; "default" required
	ShiftConfig  map[string]float64            // discipline -> shift factor; "default" required

	DisciplineZoneCfg map[string]DisciplineZonePolicy // optional
	GroundDisciplines map[string]bool

	RunID string
}

// AccelerationFor resolves a discipline's acceleration config, falling back
// to the required "default" entry.
func (c *Context) AccelerationFor(discipline string) AccelerationConfig {
	if cfg, ok := c.Acceleration[discipline]; ok {
		return cfg
	}
	return c.Acceleration["default"]
}

// ShiftFactorFor resolves a discipline's shift factor, falling back to the
// required "default" entry.
func (c *Context) ShiftFactorFor(discipline string) float64 {
	if f, ok := c.ShiftConfig[discipline]; ok {
		return f
	}
	return c.ShiftConfig["default"]
}

// IsGroundDiscipline reports whether tasks of this discipline live at floor
// 0 only under the "auto" applies_to_floors rule.
func (c *Context) IsGroundDiscipline(discipline string) bool {
	return c.GroundDisciplines[discipline]
}
