package overtime_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

const (
	monday  generic.DateKey = "2025-03-10"
	tuesday generic.DateKey = "2025-03-11"
)

func resolve(r *overtime.Resolver, f overtime.Field, day generic.DateKey, wd generic.WeekdayKey) float64 {
	v, _ := r.Resolve(f, "u1", day, wd, r.Default(f)).Float64()
	return v
}

func TestResolver_PerDayBeatsGlobalBeatsDefault(t *testing.T) {
	// GIVEN: perDay mode with a capacity for Monday only, global capacity 6
	specs := map[string]overtime.OverrideSpec{
		"u1": {
			Mode:   overtime.ModePerDay,
			Values: overtime.OverrideValues{Capacity: overtime.Num(6)},
			PerDay: map[generic.DateKey]overtime.OverrideValues{
				monday: {Capacity: overtime.Num(4)},
			},
		},
	}
	r := overtime.NewResolver(specs, overtime.DefaultCalcParams())

	assert.Equal(t, 4.0, resolve(r, overtime.FieldCapacity, monday, generic.Monday))
	assert.Equal(t, 6.0, resolve(r, overtime.FieldCapacity, tuesday, generic.Tuesday))
	assert.Equal(t, 1.5, resolve(r, overtime.FieldMultiplier, monday, generic.Monday))
}

func TestResolver_PerFieldIndependence(t *testing.T) {
	// GIVEN: Monday overrides only the multiplier
	specs := map[string]overtime.OverrideSpec{
		"u1": {
			Mode:   overtime.ModePerDay,
			Values: overtime.OverrideValues{Capacity: overtime.Num(7)},
			PerDay: map[generic.DateKey]overtime.OverrideValues{
				monday: {Multiplier: overtime.Num(3)},
			},
		},
	}
	r := overtime.NewResolver(specs, overtime.DefaultCalcParams())

	assert.Equal(t, 3.0, resolve(r, overtime.FieldMultiplier, monday, generic.Monday))
	assert.Equal(t, 7.0, resolve(r, overtime.FieldCapacity, monday, generic.Monday))
}

func TestResolver_NonFiniteIsAHole(t *testing.T) {
	specs := map[string]overtime.OverrideSpec{
		"u1": {
			Mode:   overtime.ModeWeekly,
			Values: overtime.OverrideValues{Capacity: overtime.Num(5)},
			Weekly: map[generic.WeekdayKey]overtime.OverrideValues{
				generic.Monday: {Capacity: overtime.Num(math.Inf(1)), Multiplier: overtime.Num(math.NaN())},
			},
		},
	}
	r := overtime.NewResolver(specs, overtime.DefaultCalcParams())

	assert.Equal(t, 5.0, resolve(r, overtime.FieldCapacity, monday, generic.Monday))
	assert.Equal(t, 1.5, resolve(r, overtime.FieldMultiplier, monday, generic.Monday))
}

func TestResolver_ModeGatesLevels(t *testing.T) {
	// GIVEN: global mode but a perDay map is present
	specs := map[string]overtime.OverrideSpec{
		"u1": {
			Mode:   overtime.ModeGlobal,
			PerDay: map[generic.DateKey]overtime.OverrideValues{monday: {Capacity: overtime.Num(2)}},
		},
	}
	r := overtime.NewResolver(specs, overtime.DefaultCalcParams())

	assert.Equal(t, 8.0, resolve(r, overtime.FieldCapacity, monday, generic.Monday))
}

func TestResolver_WorkspaceDefaults(t *testing.T) {
	r := overtime.NewResolver(nil, overtime.CalcParams{
		DailyThreshold:     overtime.Num(7.5),
		OvertimeMultiplier: overtime.Num(math.NaN()),
	})

	assert.Equal(t, 7.5, resolve(r, overtime.FieldCapacity, monday, generic.Monday))
	assert.Equal(t, 1.5, resolve(r, overtime.FieldMultiplier, monday, generic.Monday))
	assert.Equal(t, 4.0, resolve(r, overtime.FieldTier2Threshold, monday, generic.Monday))
	assert.Equal(t, 2.0, resolve(r, overtime.FieldTier2Multiplier, monday, generic.Monday))
}

func TestOverrideSpec_UnmarshalJSON(t *testing.T) {
	raw := `{
		"mode": "weekly",
		"capacity": "6",
		"multiplier": null,
		"weeklyOverrides": {"mon": {"capacity": 4}, "Friday": {"tier2Threshold": 1}}
	}`
	var spec overtime.OverrideSpec
	require.NoError(t, json.Unmarshal([]byte(raw), &spec))

	assert.Equal(t, overtime.ModeWeekly, spec.Mode)
	v, ok := spec.Values.Capacity.Get()
	assert.True(t, ok)
	assert.Equal(t, 6.0, v)
	_, ok = spec.Values.Multiplier.Get()
	assert.False(t, ok)
	assert.Contains(t, spec.Weekly, generic.Monday)
	assert.Contains(t, spec.Weekly, generic.Friday)
}

func TestOverrideSpec_GarbageOverridesNothing(t *testing.T) {
	var specs map[string]overtime.OverrideSpec
	require.NoError(t, json.Unmarshal([]byte(`{"u1": 17, "u2": {"mode": "perDay"}}`), &specs))

	r := overtime.NewResolver(specs, overtime.DefaultCalcParams())
	assert.Equal(t, 8.0, resolve(r, overtime.FieldCapacity, monday, generic.Monday))
}
