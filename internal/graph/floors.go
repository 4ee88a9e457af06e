package graph

import "github.com/conplan/scheduler/internal/catalogue"

// floorRange returns the floors a base task is instantiated on for a zone
// whose highest floor is maxFloor, honouring applies_to_floors and the
// ground-discipline default. When RepeatOnFloor is false the task is not
// replicated across its range; it collapses to the range's first floor.
func floorRange(base *catalogue.BaseTask, maxFloor int, groundDisciplines map[string]bool) []int {
	full := floorRangeFull(base, maxFloor, groundDisciplines)
	if base.RepeatOnFloor || len(full) == 0 {
		return full
	}
	return full[:1]
}

func floorRangeFull(base *catalogue.BaseTask, maxFloor int, groundDisciplines map[string]bool) []int {
	switch base.AppliesToFloors {
	case catalogue.FloorsGroundOnly:
		return []int{0}
	case catalogue.FloorsAboveGround:
		return rangeFrom(1, maxFloor)
	case catalogue.FloorsAllFloors:
		return rangeFrom(0, maxFloor)
	default: // auto
		if groundDisciplines[base.Discipline] {
			return []int{0}
		}
		return rangeFrom(0, maxFloor)
	}
}

func rangeFrom(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for f := lo; f <= hi; f++ {
		out = append(out, f)
	}
	return out
}

// predecessorFloor resolves the floor a same-floor predecessor reference
// lives on: floor 0 if the predecessor's discipline is a ground discipline,
// otherwise the current floor.
func predecessorFloor(predBase *catalogue.BaseTask, currentFloor int, groundDisciplines map[string]bool) int {
	if groundDisciplines[predBase.Discipline] {
		return 0
	}
	return currentFloor
}
