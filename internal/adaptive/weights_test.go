package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/models"
)

func testAdaptiveCfg() configs.AdaptiveConfig {
	return configs.AdaptiveConfig{
		MinOutcomes:    50,
		MinNegative:    5,
		MaxShiftPerRun: 0.02,
		MaxTotalDrift:  0.05,
	}
}

func testDefaults() map[string]float64 {
	return map[string]float64{
		"reliability": 0.30,
		"viability":   0.25,
		"identity":    0.20,
		"capability":  0.10,
		"behavior":    0.15,
	}
}

func intPtr(v int) *int { return &v }

func outcomesFixture(positives, negatives int) []models.ScoreOutcome {
	var out []models.ScoreOutcome
	for i := 0; i < positives; i++ {
		out = append(out, models.ScoreOutcome{
			Label: models.OutcomeSuccessfulTx,
			Dimensions: models.DimensionSnapshot{
				Reliability: intPtr(90), Viability: intPtr(50), Identity: intPtr(50),
				Capability: intPtr(50), Behavior: intPtr(50),
			},
		})
	}
	for i := 0; i < negatives; i++ {
		out = append(out, models.ScoreOutcome{
			Label: models.OutcomeFraudReport,
			Dimensions: models.DimensionSnapshot{
				Reliability: intPtr(20), Viability: intPtr(50), Identity: intPtr(50),
				Capability: intPtr(50), Behavior: intPtr(50),
			},
		})
	}
	return out
}

func TestComputeWeights_BelowMinOutcomes_ReturnsNil(t *testing.T) {
	outcomes := outcomesFixture(10, 5)
	got := ComputeWeights(outcomes, testDefaults(), testAdaptiveCfg(), testDefaults())
	assert.Nil(t, got)
}

func TestComputeWeights_BelowMinNegative_ReturnsNil(t *testing.T) {
	outcomes := outcomesFixture(48, 2)
	got := ComputeWeights(outcomes, testDefaults(), testAdaptiveCfg(), testDefaults())
	assert.Nil(t, got)
}

// TestComputeWeights_ReliabilitySkewShiftsReliabilityUp mirrors spec §8
// scenario 6: 45 positives (reliability mean 90) and 10 negatives
// (reliability mean 20), other dimensions flat — reliability weight must
// rise above its 0.30 default while the full set still sums to 1.0 within
// the drift bound.
func TestComputeWeights_ReliabilitySkewShiftsReliabilityUp(t *testing.T) {
	outcomes := outcomesFixture(45, 10)
	defaults := testDefaults()
	got := ComputeWeights(outcomes, defaults, testAdaptiveCfg(), defaults)
	require.NotNil(t, got)

	assert.Greater(t, got.Weights["reliability"], defaults["reliability"])

	sum := 0.0
	for _, name := range DimensionNames {
		w := got.Weights[name]
		assert.GreaterOrEqual(t, w, 0.0)
		drift := w - defaults[name]
		if drift < 0 {
			drift = -drift
		}
		// Drift is bounded pre-normalization; normalization can perturb it
		// slightly, so allow a small tolerance beyond MaxTotalDrift.
		assert.LessOrEqual(t, drift, testAdaptiveCfg().MaxTotalDrift+0.02)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, 45, got.PositiveCount)
	assert.Equal(t, 10, got.NegativeCount)
}

func TestComputeWeights_NoDimensionDifference_LeavesWeightsAtDefault(t *testing.T) {
	var outcomes []models.ScoreOutcome
	for i := 0; i < 30; i++ {
		outcomes = append(outcomes, models.ScoreOutcome{
			Label: models.OutcomeSuccessfulTx,
			Dimensions: models.DimensionSnapshot{
				Reliability: intPtr(50), Viability: intPtr(50), Identity: intPtr(50),
				Capability: intPtr(50), Behavior: intPtr(50),
			},
		})
	}
	for i := 0; i < 20; i++ {
		outcomes = append(outcomes, models.ScoreOutcome{
			Label: models.OutcomeNoActivity,
			Dimensions: models.DimensionSnapshot{
				Reliability: intPtr(50), Viability: intPtr(50), Identity: intPtr(50),
				Capability: intPtr(50), Behavior: intPtr(50),
			},
		})
	}
	defaults := testDefaults()
	got := ComputeWeights(outcomes, defaults, testAdaptiveCfg(), defaults)
	require.NotNil(t, got)
	for _, name := range DimensionNames {
		assert.InDelta(t, defaults[name], got.Weights[name], 1e-9)
	}
}

func TestGetEffectiveWeights_NilState_ReturnsDefaults(t *testing.T) {
	defaults := testDefaults()
	assert.Equal(t, defaults, GetEffectiveWeights(nil, defaults))
}

func TestGetEffectiveWeights_IncompleteState_FallsBackToDefaults(t *testing.T) {
	defaults := testDefaults()
	state := &models.AdaptiveState{Weights: map[string]float64{"reliability": 0.5}}
	assert.Equal(t, defaults, GetEffectiveWeights(state, defaults))
}

func TestGetEffectiveWeights_BadSum_FallsBackToDefaults(t *testing.T) {
	defaults := testDefaults()
	state := &models.AdaptiveState{Weights: map[string]float64{
		"reliability": 0.5, "viability": 0.5, "identity": 0.5, "capability": 0.5, "behavior": 0.5,
	}}
	assert.Equal(t, defaults, GetEffectiveWeights(state, defaults))
}

func TestGetEffectiveWeights_ValidState_ReturnsPersisted(t *testing.T) {
	state := &models.AdaptiveState{Weights: map[string]float64{
		"reliability": 0.35, "viability": 0.25, "identity": 0.18, "capability": 0.10, "behavior": 0.12,
	}}
	got := GetEffectiveWeights(state, testDefaults())
	assert.Equal(t, state.Weights, got)
}
