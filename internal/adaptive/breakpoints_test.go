package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/dimensions"
)

func breakpointsCfg() configs.AdaptiveConfig {
	return configs.AdaptiveConfig{
		MaturityBaseline: 25,
		MaturityCeiling:  65,
		MaxShiftRatio:    0.3,
	}
}

func sampleCurves() map[string][]dimensions.Breakpoint {
	return map[string][]dimensions.Breakpoint{
		"tx_count": {{X: 0, Y: 0}, {X: 10, Y: 5}, {X: 100, Y: 15}, {X: 1000, Y: 25}},
	}
}

func TestAdaptBreakpoints_YValuesNeverChange(t *testing.T) {
	curves := sampleCurves()
	adapted := AdaptBreakpoints(curves, PopulationStats{MedianComposite: 65}, breakpointsCfg())
	for i, p := range adapted["tx_count"] {
		assert.Equal(t, curves["tx_count"][i].Y, p.Y)
	}
}

func TestAdaptBreakpoints_ZeroAnchorStaysZero(t *testing.T) {
	curves := sampleCurves()
	adapted := AdaptBreakpoints(curves, PopulationStats{MedianComposite: 65}, breakpointsCfg())
	assert.Equal(t, 0.0, adapted["tx_count"][0].X)
}

func TestAdaptBreakpoints_XMonotonicAndAtLeastOriginal(t *testing.T) {
	curves := sampleCurves()
	adapted := AdaptBreakpoints(curves, PopulationStats{MedianComposite: 50}, breakpointsCfg())
	pts := adapted["tx_count"]
	for i, p := range pts {
		assert.GreaterOrEqual(t, p.X, curves["tx_count"][i].X)
	}
	for i := 1; i < len(pts); i++ {
		assert.GreaterOrEqual(t, pts[i].X, pts[i-1].X)
	}
}

func TestAdaptBreakpoints_MedianAtOrBelowBaseline_NoShift(t *testing.T) {
	curves := sampleCurves()
	adapted := AdaptBreakpoints(curves, PopulationStats{MedianComposite: 10}, breakpointsCfg())
	assert.Equal(t, curves["tx_count"], adapted["tx_count"])
}

func TestAdaptBreakpoints_MedianAtCeiling_MaxShift(t *testing.T) {
	curves := sampleCurves()
	adapted := AdaptBreakpoints(curves, PopulationStats{MedianComposite: 65}, breakpointsCfg())
	// f=1 at the ceiling, so nonzero x values shift by exactly MaxShiftRatio.
	assert.InDelta(t, 10*1.3, adapted["tx_count"][1].X, 0.01)
	assert.InDelta(t, 100*1.3, adapted["tx_count"][2].X, 0.01)
	assert.InDelta(t, 1000*1.3, adapted["tx_count"][3].X, 0.01)
}

func TestAdaptBreakpoints_InvertedCeilingProducesNoShift(t *testing.T) {
	curves := sampleCurves()
	cfg := breakpointsCfg()
	cfg.MaturityCeiling = cfg.MaturityBaseline
	adapted := AdaptBreakpoints(curves, PopulationStats{MedianComposite: 90}, cfg)
	assert.Equal(t, curves["tx_count"], adapted["tx_count"])
}

func TestEncodeDecodeBreakpoints_RoundTrips(t *testing.T) {
	curves := sampleCurves()
	blob := EncodeBreakpoints(curves)
	decoded, ok := DecodeBreakpoints(blob)
	require.True(t, ok)
	assert.InDelta(t, curves["tx_count"][2].X, decoded["tx_count"][2].X, 1e-9)
	assert.Equal(t, curves["tx_count"][2].Y, decoded["tx_count"][2].Y)
}

func TestDecodeBreakpoints_EmptyBlob_NotOk(t *testing.T) {
	_, ok := DecodeBreakpoints(nil)
	assert.False(t, ok)
}
