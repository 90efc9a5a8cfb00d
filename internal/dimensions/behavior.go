package dimensions

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/walletscore/reputation-engine/internal/models"
)

const minBehaviorTransactions = 5

// Behavior computes the Behavior dimension (spec §4.4): requires ≥5
// transaction timestamps, otherwise returns 50 with insufficient_data.
func Behavior(facts models.WalletFacts) models.DimensionResult {
	timestamps := facts.TransferTimestamps
	if len(timestamps) < minBehaviorTransactions {
		return models.DimensionResult{
			Score:            50,
			InsufficientData: true,
			Data:             models.JSONB{"insufficient_data": true},
		}
	}

	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := make([]float64, 0, len(sorted)-1)
	maxGapHours := 0.0
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Sub(sorted[i-1]).Hours()
		gaps = append(gaps, gap)
		if gap > maxGapHours {
			maxGapHours = gap
		}
	}

	cv := coefficientOfVariation(gaps)
	cvScore := clamp((cv-0.1)/1.4*35, 0, 35)

	entropy := hourlyEntropy(sorted)
	entropyScore := clamp((entropy-1.0)/2.5*35, 0, 35)

	gapScore := clamp((maxGapHours-1)/47*30, 0, 30)

	total := cvScore + entropyScore + gapScore
	score := int(math.Round(clamp(total, 0, 100)))

	classification := classify(score)

	data := models.JSONB{
		"inter_arrival_cv": cv,
		"hourly_entropy":   entropy,
		"max_gap_hours":    maxGapHours,
		"classification":   classification,
	}

	return models.DimensionResult{Score: score, Data: data}
}

func coefficientOfVariation(gaps []float64) float64 {
	if len(gaps) == 0 {
		return 0
	}
	mean := stat.Mean(gaps, nil)
	if mean == 0 {
		return 0
	}
	sd := stat.StdDev(gaps, nil)
	return sd / mean
}

// hourlyEntropy computes the Shannon entropy (nats) of the UTC
// hour-of-day distribution via gonum's stat.Entropy.
func hourlyEntropy(timestamps []time.Time) float64 {
	var buckets [24]float64
	for _, t := range timestamps {
		buckets[t.UTC().Hour()]++
	}
	total := float64(len(timestamps))
	probs := make([]float64, 24)
	for i, c := range buckets {
		probs[i] = c / total
	}
	return stat.Entropy(probs)
}

func classify(score int) string {
	switch {
	case score >= 70:
		return "organic"
	case score >= 45:
		return "mixed"
	case score >= 25:
		return "automated"
	default:
		return "suspicious"
	}
}
