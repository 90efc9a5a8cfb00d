package scoring

import "github.com/walletscore/reputation-engine/internal/models"

// tierFor maps a final composite to its coarse label (spec §4.8).
func tierFor(composite int) models.Tier {
	switch {
	case composite >= 90:
		return models.TierElite
	case composite >= 75:
		return models.TierTrusted
	case composite >= 60:
		return models.TierEstablished
	case composite >= 40:
		return models.TierEmerging
	default:
		return models.TierUnverified
	}
}

// recommendationFor derives the action label from composite, sybil flag,
// and confidence (spec §4.8).
func recommendationFor(composite int, sybilFlag bool, confidence float64) models.Recommendation {
	switch {
	case sybilFlag:
		return models.RecommendationFlaggedForReview
	case composite < 25:
		return models.RecommendationHighRisk
	case composite < 50 || confidence < 0.3:
		return models.RecommendationInsufficientHistory
	case composite < 75:
		return models.RecommendationProceedWithCaution
	default:
		return models.RecommendationProceed
	}
}

// freshness is the linear cache-trust decay factor (spec §4.8, glossary).
func freshness(now, computedAt, expiresAt int64) float64 {
	span := expiresAt - computedAt
	if span <= 0 {
		return 0
	}
	f := float64(expiresAt-now) / float64(span)
	return clamp01(roundTo(f, 2))
}

func roundTo(v float64, decimals int) float64 {
	p := 1.0
	for i := 0; i < decimals; i++ {
		p *= 10
	}
	return float64(int64(v*p+sign(v)*0.5)) / p
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
