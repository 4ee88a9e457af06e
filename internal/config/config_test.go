package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
catalogue:
  base_tasks:
    earthworks:
      - id: excavate
        name: Excavate
        discipline: earthworks
        resource_type: crew
        task_type: worker
        min_crews_needed: 1
        applies_to_floors: ground_only
        included: true
  workers:
    crew:
      name: crew
      count: 2
      productivity_rates:
        excavate: 10
  equipment: {}
  zone_floors:
    A: 0
quantity_matrix:
  excavate:
    "0":
      A: 50
options:
  start_date: "2026-01-05"
  holidays: []
  workweek: [1, 2, 3, 4, 5]
  acceleration:
    default:
      factor: 1
      max_multiplier: 1
  shift_config:
    default: 1.0
  run_id: test-run
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBundle_YAML(t *testing.T) {
	path := writeTemp(t, "bundle.yaml", sampleYAML)
	bundle, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "test-run", bundle.Options.RunID)
}

func TestToContext_NormalizesFloorKeysAndDates(t *testing.T) {
	path := writeTemp(t, "bundle.yaml", sampleYAML)
	bundle, err := LoadBundle(path)
	require.NoError(t, err)

	ctx, err := bundle.ToContext()
	require.NoError(t, err)
	assert.Equal(t, 2026, ctx.StartDate.Year())
	qty, ok := ctx.QuantityMatrix["excavate"][0]["A"]
	require.True(t, ok)
	assert.Equal(t, 50.0, qty)
}

func TestToContext_MissingDefaultAccelerationErrors(t *testing.T) {
	var b RunBundle
	b.Options.StartDate = "2026-01-05"
	b.Options.ShiftConfig = map[string]float64{"default": 1.0}
	_, err := b.ToContext()
	require.Error(t, err)
}
