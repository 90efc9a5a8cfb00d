package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletscore/reputation-engine/configs"
)

func dampeningCfg() configs.DampeningConfig {
	return configs.DampeningConfig{MaxDeltaLowConf: 30, MaxDeltaHighConf: 8}
}

func TestDampen_NoPrevious_ReturnsClampedNew(t *testing.T) {
	got := dampen(nil, 57, 0.9, dampeningCfg())
	assert.Equal(t, 57, got)
}

func TestDampen_NoPrevious_ClampsOutOfRange(t *testing.T) {
	assert.Equal(t, 100, dampen(nil, 140, 0.5, dampeningCfg()))
	assert.Equal(t, 0, dampen(nil, -5, 0.5, dampeningCfg()))
}

func TestDampen_LowConfidenceAllowsLargeSwing(t *testing.T) {
	prev := 60
	got := dampen(&prev, 100, 0.0, dampeningCfg())
	assert.Equal(t, 90, got) // capped at prev + maxDelta(0) = 60+30
}

func TestDampen_HighConfidenceCapsSmallSwing(t *testing.T) {
	prev := 60
	got := dampen(&prev, 100, 1.0, dampeningCfg())
	assert.Equal(t, 68, got) // capped at prev + maxDelta(1) = 60+8
}

func TestDampen_NeverExceedsMaxDeltaForAnyConfidence(t *testing.T) {
	cfg := dampeningCfg()
	for _, prev := range []int{0, 20, 50, 80, 100} {
		for _, conf := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
			p := prev
			got := dampen(&p, 0, conf, cfg)
			maxDelta := cfg.MaxDeltaLowConf + (cfg.MaxDeltaHighConf-cfg.MaxDeltaLowConf)*conf
			assert.LessOrEqual(t, float64(abs(got-prev)), maxDelta+1e-9)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestDampen_SmallDeltaPassesThroughUnchanged(t *testing.T) {
	prev := 50
	got := dampen(&prev, 52, 0.8, dampeningCfg())
	assert.Equal(t, 52, got)
}
