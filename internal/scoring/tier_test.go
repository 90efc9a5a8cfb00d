package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletscore/reputation-engine/internal/models"
)

func TestTierFor_MatchesSpecThresholds(t *testing.T) {
	cases := []struct {
		composite int
		want      models.Tier
	}{
		{100, models.TierElite}, {90, models.TierElite},
		{89, models.TierTrusted}, {75, models.TierTrusted},
		{74, models.TierEstablished}, {60, models.TierEstablished},
		{59, models.TierEmerging}, {40, models.TierEmerging},
		{39, models.TierUnverified}, {0, models.TierUnverified},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tierFor(c.composite), "composite=%d", c.composite)
	}
}

func TestRecommendationFor_SybilAlwaysFlagged(t *testing.T) {
	got := recommendationFor(95, true, 0.9)
	assert.Equal(t, models.RecommendationFlaggedForReview, got)
}

func TestRecommendationFor_MatchesSpecThresholds(t *testing.T) {
	assert.Equal(t, models.RecommendationHighRisk, recommendationFor(24, false, 0.9))
	assert.Equal(t, models.RecommendationInsufficientHistory, recommendationFor(49, false, 0.9))
	assert.Equal(t, models.RecommendationInsufficientHistory, recommendationFor(80, false, 0.2))
	assert.Equal(t, models.RecommendationProceedWithCaution, recommendationFor(74, false, 0.9))
	assert.Equal(t, models.RecommendationProceed, recommendationFor(75, false, 0.9))
}

func TestFreshness_DecaysLinearlyAndClamps(t *testing.T) {
	computedAt := int64(1000)
	expiresAt := int64(2000)
	assert.Equal(t, 1.0, freshness(computedAt, computedAt, expiresAt))
	assert.Equal(t, 0.5, freshness(1500, computedAt, expiresAt))
	assert.Equal(t, 0.0, freshness(expiresAt, computedAt, expiresAt))
	assert.Equal(t, 0.0, freshness(3000, computedAt, expiresAt)) // past expiry clamps at 0
}

func TestFreshness_ZeroSpanReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, freshness(1000, 1000, 1000))
}
