package fraud

import (
	"math"

	"github.com/walletscore/reputation-engine/internal/models"
)

// GamingResult is the Gaming Detector's output: indicators plus the
// penalties/overrides the Orchestrator applies to composite and
// per-dimension scores (spec §4.3, §4.1 step 3).
type GamingResult struct {
	Indicators        []string
	CompositePenalty  float64
	ReliabilityPenalty float64
	ViabilityPenalty  float64
	UseAvgBalance     bool
}

func (r *GamingResult) addIndicator(tag string) {
	r.Indicators = append(r.Indicators, tag)
}

// DetectGaming runs all five rules (spec §4.3). currentBalance is the
// instantaneous USDC balance at scoring time.
func DetectGaming(facts models.WalletFacts, currentBalance float64, recentScoreLookup bool) GamingResult {
	result := GamingResult{}

	// 1. velocity_spike: tx_count_24h > 10 * (tx_count_7d/7), tx_count_7d > 0.
	if facts.TxCount7d > 0 {
		avgDaily := float64(facts.TxCount7d) / 7.0
		if float64(facts.TxCount24h) > 10*avgDaily {
			result.addIndicator("velocity_spike")
			result.CompositePenalty += 10
		}
	}

	windowDressing := facts.AvgBalance24h > 0 && currentBalance > 5*facts.AvgBalance24h

	// 2. deposit_and_score: balance > 5x avg AND a recent score lookup exists.
	// 4. balance_window_dressing: same balance condition without a recent
	// lookup — not double-counted with deposit_and_score (spec §4.3).
	if windowDressing && recentScoreLookup {
		result.addIndicator("deposit_and_score")
		result.ViabilityPenalty += 5
		result.UseAvgBalance = true
	} else if windowDressing {
		result.addIndicator("balance_window_dressing")
		result.ViabilityPenalty += 10
		result.UseAvgBalance = true
	}

	// 3. burst_and_stop: 0 tx in last hour AND >20 tx in the (24h,1h] window.
	if facts.TxCount1h == 0 && facts.TxCount24hTo1h > 20 {
		result.addIndicator("burst_and_stop")
		result.ReliabilityPenalty += 8
	}

	// 5. wash_trading: sum of min(sent,received) per partner / total volume > 0.40.
	washed, total := washTradeVolumes(facts.Partners)
	if total > 0 {
		ratio := washed / total
		if ratio > 0.40 {
			result.addIndicator("wash_trading")
			result.ReliabilityPenalty += scaledWashPenalty(ratio)
			result.CompositePenalty += 5
		}
	}

	return result
}

// washTradeVolumes sums, per partner, the smaller leg (the washed portion)
// and the larger leg (the notional volume that leg represents). A fully
// symmetric round-trip (a == b) yields washed/total == 1.0, matching spec
// §8 scenario 3's "wash_trading ratio ≈1.0" for a two-way round-trip
// partner; a one-sided flow yields a ratio near 0.
func washTradeVolumes(partners []models.PartnerVolume) (washed, total float64) {
	for _, p := range partners {
		small, large := p.VolumeAToB, p.VolumeBToA
		if small > large {
			small, large = large, small
		}
		washed += small
		total += large
	}
	return washed, total
}

// scaledWashPenalty maps ratio in [0.4,0.8] to a reliability penalty in
// [8,15], clamped at the ends (spec §4.3 "scaled(8..15, ratio 0.4..0.8)").
func scaledWashPenalty(ratio float64) float64 {
	t := (ratio - 0.4) / 0.4
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return math.Round((8 + t*(15-8))*100) / 100
}
