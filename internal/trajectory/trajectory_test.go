package trajectory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletscore/reputation-engine/internal/models"
)

func buildHistory(scores []int, start time.Time) []models.ScoreHistory {
	history := make([]models.ScoreHistory, len(scores))
	for i, s := range scores {
		history[i] = models.ScoreHistory{
			Wallet:       "0xabc",
			Score:        s,
			CalculatedAt: start.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return history
}

func TestCompute_EmptyHistory_IsNew(t *testing.T) {
	result := Compute(nil, time.Now())
	assert.Equal(t, DirectionNew, result.Direction)
	assert.Nil(t, result.Velocity)
	assert.Nil(t, result.Momentum)
	assert.Equal(t, 0, result.Modifier)
}

func TestCompute_SinglePoint_VelocityNull(t *testing.T) {
	history := buildHistory([]int{50}, time.Now())
	result := Compute(history, time.Now())
	assert.Nil(t, result.Velocity)
	assert.Nil(t, result.Momentum)
}

func TestCompute_FewerThanSixPoints_MomentumNull(t *testing.T) {
	history := buildHistory([]int{50, 52, 54, 56}, time.Now())
	result := Compute(history, time.Now())
	require.NotNil(t, result.Velocity)
	assert.Nil(t, result.Momentum)
}

func TestCompute_SustainedRise_ModifierIsPlusFive(t *testing.T) {
	scores := make([]int, 12)
	for i := range scores {
		scores[i] = 50 + i*3
	}
	history := buildHistory(scores, time.Now().Add(-12*24*time.Hour))
	result := Compute(history, time.Now())

	require.NotNil(t, result.Velocity)
	assert.Greater(t, *result.Velocity, 1.0)
	assert.Equal(t, DirectionImproving, result.Direction)
	assert.Equal(t, 5, result.Modifier)
	assert.GreaterOrEqual(t, result.SpanDays, 0.0)
}

func TestCompute_SustainedDecline_ModifierIsMinusFive(t *testing.T) {
	scores := make([]int, 12)
	for i := range scores {
		scores[i] = 90 - i*3
	}
	history := buildHistory(scores, time.Now().Add(-12*24*time.Hour))
	result := Compute(history, time.Now())

	require.NotNil(t, result.Velocity)
	assert.Less(t, *result.Velocity, -1.0)
	assert.Equal(t, DirectionDeclining, result.Direction)
	assert.Equal(t, -5, result.Modifier)
}

func TestCompute_RiseCappedAtCeiling_StreakSurvivesPlateau(t *testing.T) {
	// Mirrors spec §8 scenario 2: 50,52,...,148 capped at 100 — the score
	// rises for 25 points then sits pinned at the 100 ceiling for the rest
	// of the history. The ceiling plateau must not reset the rise streak.
	scores := make([]int, 50)
	for i := range scores {
		s := 50 + i*2
		if s > 100 {
			s = 100
		}
		scores[i] = s
	}
	history := buildHistory(scores, time.Now().Add(-50*24*time.Hour))
	result := Compute(history, time.Now())

	require.NotNil(t, result.Velocity)
	assert.Greater(t, *result.Velocity, 1.0)
	assert.Equal(t, DirectionImproving, result.Direction)
	assert.Equal(t, 5, result.Modifier)
}

func TestCompute_ModifierAlwaysWithinSpecRange(t *testing.T) {
	scores := []int{50, 80, 40, 95, 10, 70, 30, 99, 5}
	history := buildHistory(scores, time.Now().Add(-9*24*time.Hour))
	result := Compute(history, time.Now())
	assert.GreaterOrEqual(t, result.Modifier, -5)
	assert.LessOrEqual(t, result.Modifier, 5)
}
