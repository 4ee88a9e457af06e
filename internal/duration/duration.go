// Package duration implements the duration calculator, component C4: the
// worker/equipment/hybrid bottleneck math, the discipline shift factor, and
// the floor-experience discount.
package duration

import (
	"math"

	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/internal/schederr"
)

// floorExperienceBase is the per-floor productivity discount applied above
// the first floor: duration *= floorExperienceBase^(floor-1).
const floorExperienceBase = 0.98

// Calculate resolves a task instance's duration in workdays given an actual
// (or proposed) crew count and equipment allocation. It never mutates ctx.
// A missing or non-positive quantity defaults to 1 and is reported in the
// returned warnings; a missing productivity rate defaults to 1 without a
// warning.
func Calculate(
	base *catalogue.BaseTask,
	inst *catalogue.TaskInstance,
	ctx *catalogue.Context,
	crews int,
	equipment map[string]int,
) (int, []catalogue.Warning, error) {
	if base.BaseDuration != nil {
		return max(1, ceil(*base.BaseDuration)), nil, nil
	}

	var warnings []catalogue.Warning
	qty, qtyWarn := quantity(ctx, base, inst)
	if qtyWarn != nil {
		warnings = append(warnings, *qtyWarn)
	}

	if crews <= 0 {
		crews = max(1, base.MinCrewsNeeded)
	}
	if equipment == nil {
		equipment = defaultEquipmentAlloc(base)
	}

	var raw float64
	var err error
	switch base.TaskType {
	case catalogue.TaskTypeWorker:
		raw, err = workerDuration(ctx, base, inst, crews, qty)
	case catalogue.TaskTypeEquipment:
		raw, err = equipmentDuration(ctx, base, inst, equipment, qty)
	case catalogue.TaskTypeHybrid:
		raw, err = hybridDuration(ctx, base, inst, crews, equipment, qty)
	default:
		return 0, warnings, schederr.New(schederr.KindInvalidInput, inst.ID, "unknown task_type "+string(base.TaskType))
	}
	if err != nil {
		return 0, warnings, err
	}

	shift := ctx.ShiftFactorFor(inst.Discipline)
	if shift <= 0 {
		shift = 1.0
	}
	raw /= shift

	if inst.Floor > 1 {
		raw *= math.Pow(floorExperienceBase, float64(inst.Floor-1))
	}

	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, warnings, schederr.New(schederr.KindNonFiniteDuration, inst.ID, "computed duration is not finite")
	}
	if raw <= 0 {
		msg := "non-positive computed duration for task " + inst.ID + ", defaulting to 1 day"
		warnings = append(warnings, catalogue.Warning{TaskID: inst.ID, Message: msg})
		raw = 1
	}

	return max(1, ceil(raw)), warnings, nil
}

func quantity(ctx *catalogue.Context, base *catalogue.BaseTask, inst *catalogue.TaskInstance) (float64, *catalogue.Warning) {
	byFloor, ok := ctx.QuantityMatrix[base.ID]
	if !ok {
		return 1, &catalogue.Warning{TaskID: inst.ID, Message: "no quantity matrix entry for base task " + base.ID + ", defaulting to 1"}
	}
	byZone, ok := byFloor[inst.Floor]
	if !ok {
		return 1, &catalogue.Warning{TaskID: inst.ID, Message: "no quantity matrix floor entry for task " + inst.ID + ", defaulting to 1"}
	}
	qty, ok := byZone[inst.Zone]
	if !ok || qty <= 0 {
		return 1, &catalogue.Warning{TaskID: inst.ID, Message: "invalid or missing quantity for task " + inst.ID + ", defaulting to 1"}
	}
	return qty, nil
}

func productivityRate(rates map[string]float64, baseID string) float64 {
	if rates == nil {
		return 1
	}
	if r, ok := rates[baseID]; ok {
		return r
	}
	return 1
}

func defaultEquipmentAlloc(base *catalogue.BaseTask) map[string]int {
	alloc := make(map[string]int, len(base.MinEquipmentNeeded))
	for _, req := range base.MinEquipmentNeeded {
		alloc[req.Choice.First()] = req.Units
	}
	return alloc
}

func workerDuration(ctx *catalogue.Context, base *catalogue.BaseTask, inst *catalogue.TaskInstance, crews int, qty float64) (float64, error) {
	pool, ok := ctx.Workers[base.ResourceType]
	if !ok {
		return 0, schederr.New(schederr.KindInvalidInput, inst.ID, "worker resource '"+base.ResourceType+"' not found")
	}
	dailyProd := productivityRate(pool.ProductivityRates, base.ID) * float64(crews)
	if dailyProd <= 0 {
		return 0, schederr.New(schederr.KindProductivityZero, inst.ID, "non-positive worker productivity")
	}
	return qty / dailyProd, nil
}

func firstEquipmentUnits(base *catalogue.BaseTask, equipment map[string]int) (string, int, bool) {
	if len(base.MinEquipmentNeeded) == 0 {
		return "", 0, false
	}
	req := base.MinEquipmentNeeded[0]
	total := 0
	for _, member := range req.Choice.Members {
		total += equipment[member]
	}
	return req.Choice.First(), total, true
}

func equipmentDuration(ctx *catalogue.Context, base *catalogue.BaseTask, inst *catalogue.TaskInstance, equipment map[string]int, qty float64) (float64, error) {
	if len(equipment) == 0 {
		return 0, schederr.New(schederr.KindInvalidInput, inst.ID, "equipment task has no equipment allocated")
	}
	firstType, units, ok := firstEquipmentUnits(base, equipment)
	if !ok || firstType == "" {
		return 0, schederr.New(schederr.KindInvalidInput, inst.ID, "no equipment types configured")
	}
	pool, ok := ctx.Equipment[firstType]
	if !ok {
		return 0, schederr.New(schederr.KindInvalidInput, inst.ID, "equipment '"+firstType+"' not found")
	}
	dailyProd := productivityRate(pool.ProductivityRates, base.ID) * float64(units)
	if dailyProd <= 0 {
		return 0, schederr.New(schederr.KindProductivityZero, inst.ID, "non-positive equipment productivity")
	}
	return qty / dailyProd, nil
}

func hybridDuration(ctx *catalogue.Context, base *catalogue.BaseTask, inst *catalogue.TaskInstance, crews int, equipment map[string]int, qty float64) (float64, error) {
	pool, ok := ctx.Workers[base.ResourceType]
	if !ok {
		return 0, schederr.New(schederr.KindInvalidInput, inst.ID, "worker resource '"+base.ResourceType+"' not found")
	}
	dailyWorkerProd := productivityRate(pool.ProductivityRates, base.ID) * float64(crews)
	if dailyWorkerProd <= 0 {
		return 0, schederr.New(schederr.KindProductivityZero, inst.ID, "non-positive worker productivity")
	}

	dailyEquipProd := 0.0
	if len(equipment) > 0 {
		if firstType, units, ok := firstEquipmentUnits(base, equipment); ok && firstType != "" {
			if eqPool, ok := ctx.Equipment[firstType]; ok {
				eff := eqPool.Efficiency
				if eff <= 0 {
					eff = 1
				}
				dailyEquipProd = productivityRate(eqPool.ProductivityRates, base.ID) * float64(units) * eff
			}
		}
	}

	durationWorker := qty / dailyWorkerProd
	durationEquip := math.Inf(1)
	if dailyEquipProd > 0 {
		durationEquip = qty / dailyEquipProd
	}
	return math.Max(durationWorker, durationEquip), nil
}

func ceil(f float64) int {
	return int(math.Ceil(f))
}
