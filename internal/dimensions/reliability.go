package dimensions

import (
	"math"

	"github.com/walletscore/reputation-engine/internal/models"
)

// nonceThresholds is spec §4.4's stepped table, sorted descending so the
// first match wins (Stepped semantics).
var nonceThresholds = []Breakpoint{
	{X: 1000, Y: 20},
	{X: 100, Y: 15},
	{X: 10, Y: 8},
	{X: 1, Y: 3},
}

// Reliability computes the Reliability dimension (spec §4.4): five
// additive components, clamped to 100.
func Reliability(facts models.WalletFacts, curves CurveSet, blocksPerDay int64) models.DimensionResult {
	data := models.JSONB{}

	// payment-success proxy: presence of transfers, 0-30.
	paymentProxy := 0.0
	if facts.TotalTxCount > 0 {
		paymentProxy = 30.0
	}
	data["payment_success_proxy"] = paymentProxy

	// log-scale tx count via adaptive breakpoints.
	txCountScore := Interpolate(curves.Get(CurveReliabilityTxCount), float64(facts.TotalTxCount))
	data["tx_count_score"] = txCountScore

	// nonce, stepped.
	nonceScore := Stepped(nonceThresholds, float64(facts.Nonce))
	data["nonce_score"] = nonceScore

	// uptime span: (lastBlock-firstBlock)/(90*BLOCKS_PER_DAY) * 25.
	uptimeScore := 0.0
	if blocksPerDay > 0 && facts.LastBlock > facts.FirstBlock {
		span := float64(facts.LastBlock-facts.FirstBlock) / float64(90*blocksPerDay)
		uptimeScore = clamp(span, 0, 1) * 25
	}
	data["uptime_score"] = uptimeScore

	// recency bonus: stepped by hours since last activity.
	recencyScore := 0.0
	if facts.LastActivityAgo != nil {
		hours := facts.LastActivityAgo.Hours()
		switch {
		case hours <= 24:
			recencyScore = 20
		case hours <= 24*7:
			recencyScore = 15
		case hours <= 24*30:
			recencyScore = 5
		default:
			recencyScore = 0
		}
	}
	data["recency_score"] = recencyScore

	total := paymentProxy + txCountScore + nonceScore + uptimeScore + recencyScore
	score := int(math.Round(clamp(total, 0, 100)))

	return models.DimensionResult{Score: score, Data: data}
}
