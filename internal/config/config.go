// Package config loads a scheduling run bundle — the catalogue, quantity
// matrix, and run options — from JSON or YAML, normalising the key shapes
// external loaders are required to hand the core (base_id as string, floor
// as non-negative int, zone as string).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conplan/scheduler/internal/catalogue"
	"github.com/conplan/scheduler/internal/schederr"
)

// RunBundle is the on-disk shape of everything needed to build a
// catalogue.Context: a single JSON or YAML file (chosen by extension) with
// catalogue, quantity_matrix, and options sections.
type RunBundle struct {
	Catalogue      CatalogueFile      `yaml:"catalogue" json:"catalogue"`
	QuantityMatrix RawQuantityMatrix  `yaml:"quantity_matrix" json:"quantity_matrix"`
	Options        RunOptions         `yaml:"options" json:"options"`
}

// CatalogueFile mirrors catalogue.Context's resource and base-task inputs
// in a serialisation-friendly shape.
type CatalogueFile struct {
	BaseTasks         map[string][]*catalogue.BaseTask           `yaml:"base_tasks" json:"base_tasks"`
	Workers           map[string]*catalogue.WorkerPool           `yaml:"workers" json:"workers"`
	Equipment         map[string]*catalogue.EquipmentPool        `yaml:"equipment" json:"equipment"`
	ZoneFloors        catalogue.ZoneGrid                         `yaml:"zone_floors" json:"zone_floors"`
	CrossFloorLinks   map[string][]string                        `yaml:"cross_floor_links" json:"cross_floor_links"`
	DisciplineZoneCfg map[string]catalogue.DisciplineZonePolicy  `yaml:"discipline_zone_cfg" json:"discipline_zone_cfg"`
	GroundDisciplines []string                                   `yaml:"ground_disciplines" json:"ground_disciplines"`
}

// RawQuantityMatrix is the wire shape base_id -> floor (string key, any
// valid integer literal) -> zone -> quantity; ToContext normalises the
// floor key to int.
type RawQuantityMatrix map[string]map[string]map[string]float64

// RunOptions carries the run-scoped settings that aren't part of the
// catalogue: calendar, acceleration, and shift configuration.
type RunOptions struct {
	StartDate    string                                    `yaml:"start_date" json:"start_date"`
	Holidays     []string                                   `yaml:"holidays" json:"holidays"`
	Workweek     []int                                      `yaml:"workweek" json:"workweek"` // 0=Sunday..6=Saturday
	Acceleration map[string]catalogue.AccelerationConfig    `yaml:"acceleration" json:"acceleration"`
	ShiftConfig  map[string]float64                         `yaml:"shift_config" json:"shift_config"`
	RunID        string                                     `yaml:"run_id" json:"run_id"`
}

// LoadBundle reads and decodes a RunBundle from path, dispatching on
// extension (.yaml/.yml vs everything else, which is treated as JSON).
func LoadBundle(path string) (*RunBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schederr.Wrap(schederr.KindInvalidInput, "", "reading run bundle "+path, err)
	}

	var bundle RunBundle
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &bundle)
	} else {
		err = json.Unmarshal(data, &bundle)
	}
	if err != nil {
		return nil, schederr.Wrap(schederr.KindInvalidInput, "", "decoding run bundle "+path, err)
	}
	return &bundle, nil
}

// ToContext normalises a decoded RunBundle into a catalogue.Context: floor
// keys become ints, date strings become time.Time, and the acceleration /
// shift-config "default" key is verified present.
func (b *RunBundle) ToContext() (*catalogue.Context, error) {
	if _, ok := b.Options.Acceleration["default"]; !ok {
		return nil, schederr.New(schederr.KindInvalidInput, "", "acceleration config is missing the required 'default' key")
	}
	if _, ok := b.Options.ShiftConfig["default"]; !ok {
		return nil, schederr.New(schederr.KindInvalidInput, "", "shift_config is missing the required 'default' key")
	}

	quantityMatrix, err := normalizeQuantityMatrix(b.QuantityMatrix)
	if err != nil {
		return nil, err
	}

	startDate, err := parseDate(b.Options.StartDate)
	if err != nil {
		return nil, schederr.Wrap(schederr.KindInvalidInput, "", "parsing start_date", err)
	}

	holidays := make([]time.Time, 0, len(b.Options.Holidays))
	for _, h := range b.Options.Holidays {
		d, err := parseDate(h)
		if err != nil {
			return nil, schederr.Wrap(schederr.KindInvalidInput, "", "parsing holiday date "+h, err)
		}
		holidays = append(holidays, d)
	}

	workweek := make([]time.Weekday, 0, len(b.Options.Workweek))
	for _, w := range b.Options.Workweek {
		if w < 0 || w > 6 {
			return nil, schederr.New(schederr.KindInvalidInput, "", fmt.Sprintf("workweek entry %d is out of range [0,6]", w))
		}
		workweek = append(workweek, time.Weekday(w))
	}

	groundDisciplines := make(map[string]bool, len(b.Catalogue.GroundDisciplines))
	for _, d := range b.Catalogue.GroundDisciplines {
		groundDisciplines[d] = true
	}

	for discipline, tasks := range b.Catalogue.BaseTasks {
		for _, t := range tasks {
			if t.Discipline == "" {
				t.Discipline = discipline
			}
		}
	}

	return &catalogue.Context{
		BaseTasks:         b.Catalogue.BaseTasks,
		ZoneFloors:        b.Catalogue.ZoneFloors,
		QuantityMatrix:    quantityMatrix,
		Workers:           b.Catalogue.Workers,
		Equipment:         b.Catalogue.Equipment,
		StartDate:         startDate,
		Holidays:          holidays,
		Workweek:          workweek,
		CrossFloorLinks:   b.Catalogue.CrossFloorLinks,
		Acceleration:      b.Options.Acceleration,
		ShiftConfig:       b.Options.ShiftConfig,
		DisciplineZoneCfg: b.Catalogue.DisciplineZoneCfg,
		GroundDisciplines: groundDisciplines,
		RunID:             b.Options.RunID,
	}, nil
}

func normalizeQuantityMatrix(raw RawQuantityMatrix) (map[string]map[int]map[string]float64, error) {
	out := make(map[string]map[int]map[string]float64, len(raw))
	for baseID, byFloor := range raw {
		floors := make(map[int]map[string]float64, len(byFloor))
		for floorStr, byZone := range byFloor {
			floor, err := strconv.Atoi(floorStr)
			if err != nil || floor < 0 {
				return nil, schederr.New(schederr.KindInvalidInput, baseID, "quantity_matrix floor key '"+floorStr+"' is not a non-negative integer")
			}
			floors[floor] = byZone
		}
		out[baseID] = floors
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
