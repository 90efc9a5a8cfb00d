package scoring

import (
	"math"

	"github.com/walletscore/reputation-engine/configs"
)

// dampen applies confidence-weighted dampening so a single pipeline run
// can't swing a wallet's score further than maxDelta(confidence) allows
// (spec §4.1 step 9, §8). maxDelta is affine in confidence: maxDelta(0) =
// cfg.MaxDeltaLowConf, maxDelta(1) = cfg.MaxDeltaHighConf.
func dampen(previous *int, newScore int, confidence float64, cfg configs.DampeningConfig) int {
	if previous == nil {
		return clampScore(newScore)
	}

	maxDelta := cfg.MaxDeltaLowConf + (cfg.MaxDeltaHighConf-cfg.MaxDeltaLowConf)*clamp01(confidence)

	delta := float64(newScore - *previous)
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}

	return clampScore(int(math.Round(float64(*previous) + delta)))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
