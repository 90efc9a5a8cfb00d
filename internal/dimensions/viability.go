package dimensions

import (
	"math"

	"github.com/walletscore/reputation-engine/internal/models"
)

var ethBalanceThresholds = []Breakpoint{
	{X: 0.1, Y: 15},
	{X: 0.01, Y: 10},
	{X: 0.001, Y: 5},
	{X: math.SmallestNonzeroFloat64, Y: 2}, // ">0" in spec; any nonzero dust counts
}

var usdcBalanceThresholds = []Breakpoint{
	{X: 100, Y: 25},
	{X: 50, Y: 20},
	{X: 10, Y: 15},
	{X: 1, Y: 5},
}

var trendScores = map[string]float64{
	"rising":    15,
	"stable":    10,
	"declining": 5,
	"freefall":  0,
}

// Viability computes the Viability dimension (spec §4.4).
//
// When the Fraud Engine's gaming overrides set useAvgBalance, the caller
// passes avgBalance24h in place of the instantaneous USDC balance (spec
// §4.1 step 3 / §4.3 balance_window_dressing).
func Viability(facts models.WalletFacts, usdcBalance float64, trend string, curves CurveSet) models.DimensionResult {
	data := models.JSONB{}

	ethScore := Stepped(ethBalanceThresholds, facts.EthBalanceWei/1e18)
	if facts.EthBalanceWei <= 0 {
		ethScore = 0
	}
	data["eth_balance_score"] = ethScore

	usdcScore := Stepped(usdcBalanceThresholds, usdcBalance)
	data["usdc_balance_score"] = usdcScore

	ratio := 0.0
	hasOutflow := facts.Out30d > 0
	hasInflow := facts.In30d > 0
	if hasOutflow {
		ratio = facts.In30d / facts.Out30d
	}
	ratioScore := 0.0
	switch {
	case hasOutflow && ratio > 2:
		ratioScore = 30
	case hasOutflow && ratio > 1.5:
		ratioScore = 25
	case hasOutflow && ratio > 1:
		ratioScore = 15
	case hasOutflow:
		ratioScore = 5
	case hasInflow:
		ratioScore = 30
	default:
		ratioScore = 0
	}
	data["income_burn_ratio_score"] = ratioScore

	ageScore := Interpolate(curves.Get(CurveViabilityWalletAge), facts.WalletAgeDays)
	data["wallet_age_score"] = ageScore

	trendScore := trendScores[trend]
	data["trend_score"] = trendScore

	total := ethScore + usdcScore + ratioScore + ageScore + trendScore

	// ever-zero-balance heuristic: current balance 0 and total outflows > 0.
	if usdcBalance == 0 && facts.TotalOut > 0 {
		total -= 15
		data["zero_balance_penalty"] = true
	}

	score := int(math.Round(clamp(total, 0, 100)))
	return models.DimensionResult{Score: score, Data: data}
}
