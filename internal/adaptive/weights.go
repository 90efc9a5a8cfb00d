// Package adaptive learns dimension weights from labeled score outcomes
// and shifts dimension breakpoint curves with ecosystem maturity (spec
// §4.5), grounded on aristath-sentinel's gonum stat wrappers and
// quantumlife's named-weight-constant style for the static defaults.
package adaptive

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/models"
)

// DimensionNames is the fixed iteration order for weight computation.
var DimensionNames = []string{"reliability", "viability", "identity", "capability", "behavior"}

// DefaultWeights returns the static dimension-weight defaults (spec §6).
func DefaultWeights(cfg configs.WeightsConfig) map[string]float64 {
	return map[string]float64{
		"reliability": cfg.Reliability,
		"viability":   cfg.Viability,
		"identity":    cfg.Identity,
		"capability":  cfg.Capability,
		"behavior":    cfg.Behavior,
	}
}

// WeightsResult is ComputeWeights' output (spec §4.5), or "none" (nil)
// when the sample doesn't meet the minimum thresholds.
type WeightsResult struct {
	Weights       map[string]float64
	SampleSize    int
	PositiveCount int
	NegativeCount int
}

var positiveLabels = map[models.OutcomeLabel]bool{
	models.OutcomeSuccessfulTx:         true,
	models.OutcomeMultipleSuccessfulTx: true,
}

var negativeLabels = map[models.OutcomeLabel]bool{
	models.OutcomeFraudReport: true,
	models.OutcomeNoActivity:  true,
}

func dimensionValue(d models.DimensionSnapshot, name string) *int {
	switch name {
	case "reliability":
		return d.Reliability
	case "viability":
		return d.Viability
	case "identity":
		return d.Identity
	case "capability":
		return d.Capability
	case "behavior":
		return d.Behavior
	}
	return nil
}

// ComputeWeights implements spec §4.5's weight-shift algorithm. Returns
// nil when fewer than MinOutcomes labeled outcomes exist, or fewer than
// MinNegative negatives — the caller falls back to the current stored
// weights (GetEffectiveWeights).
func ComputeWeights(outcomes []models.ScoreOutcome, current map[string]float64, cfg configs.AdaptiveConfig, defaults map[string]float64) *WeightsResult {
	var positives, negatives []models.ScoreOutcome
	for _, o := range outcomes {
		if positiveLabels[o.Label] {
			positives = append(positives, o)
		} else if negativeLabels[o.Label] {
			negatives = append(negatives, o)
		}
	}

	total := len(positives) + len(negatives)
	if total < cfg.MinOutcomes || len(negatives) < cfg.MinNegative {
		return nil
	}

	shifted := make(map[string]float64, len(current))
	for k, v := range current {
		shifted[k] = v
	}

	for _, dim := range DimensionNames {
		posValues := collectValues(positives, dim)
		negValues := collectValues(negatives, dim)
		if len(posValues) == 0 || len(negValues) == 0 {
			continue
		}

		meanPos := stat.Mean(posValues, nil)
		meanNeg := stat.Mean(negValues, nil)
		diff := meanPos - meanNeg

		shift := math.Min(math.Abs(diff)/100, cfg.MaxShiftPerRun)
		if diff < 0 {
			shift = -shift
		}

		newWeight := shifted[dim] + shift
		defaultWeight := defaults[dim]
		drift := newWeight - defaultWeight
		if drift > cfg.MaxTotalDrift {
			newWeight = defaultWeight + cfg.MaxTotalDrift
		} else if drift < -cfg.MaxTotalDrift {
			newWeight = defaultWeight - cfg.MaxTotalDrift
		}
		shifted[dim] = newWeight
	}

	normalized := normalize(shifted)

	return &WeightsResult{
		Weights:       normalized,
		SampleSize:    total,
		PositiveCount: len(positives),
		NegativeCount: len(negatives),
	}
}

func collectValues(outcomes []models.ScoreOutcome, dim string) []float64 {
	var values []float64
	for _, o := range outcomes {
		if v := dimensionValue(o.Dimensions, dim); v != nil {
			values = append(values, float64(*v))
		}
	}
	return values
}

func normalize(weights map[string]float64) map[string]float64 {
	sum := 0.0
	for _, v := range weights {
		sum += v
	}
	if sum == 0 {
		return weights
	}
	out := make(map[string]float64, len(weights))
	for k, v := range weights {
		out[k] = v / sum
	}
	return out
}

// GetEffectiveWeights returns the persisted weights if they're structurally
// valid (all five dimension keys present, values numeric, sum within
// tolerance of 1.0), else the static defaults (spec §4.5).
func GetEffectiveWeights(state *models.AdaptiveState, defaults map[string]float64) map[string]float64 {
	if state == nil || len(state.Weights) == 0 {
		return defaults
	}
	sum := 0.0
	for _, name := range DimensionNames {
		v, ok := state.Weights[name]
		if !ok {
			return defaults
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-4 {
		return defaults
	}
	return state.Weights
}
