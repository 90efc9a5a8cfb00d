package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletscore/reputation-engine/internal/models"
)

func TestDetectGaming_NoSignals_NoIndicators(t *testing.T) {
	got := DetectGaming(models.WalletFacts{}, 0, false)
	assert.Empty(t, got.Indicators)
	assert.False(t, got.UseAvgBalance)
}

func TestDetectGaming_VelocitySpike(t *testing.T) {
	facts := models.WalletFacts{TxCount7d: 7, TxCount24h: 15} // avgDaily=1, 15 > 10*1
	got := DetectGaming(facts, 0, false)
	assert.Contains(t, got.Indicators, "velocity_spike")
	assert.Equal(t, 10.0, got.CompositePenalty)
}

// TestDetectGaming_DepositAndScore mirrors spec §8 scenario 4: balance 600
// vs avg 100 with a recent score lookup produces deposit_and_score, not
// balance_window_dressing, and sets UseAvgBalance.
func TestDetectGaming_DepositAndScore(t *testing.T) {
	facts := models.WalletFacts{AvgBalance24h: 100}
	got := DetectGaming(facts, 600, true)
	assert.Contains(t, got.Indicators, "deposit_and_score")
	assert.NotContains(t, got.Indicators, "balance_window_dressing")
	assert.Equal(t, 5.0, got.ViabilityPenalty)
	assert.True(t, got.UseAvgBalance)
}

func TestDetectGaming_BalanceWindowDressingWithoutRecentLookup(t *testing.T) {
	facts := models.WalletFacts{AvgBalance24h: 100}
	got := DetectGaming(facts, 600, false)
	assert.Contains(t, got.Indicators, "balance_window_dressing")
	assert.NotContains(t, got.Indicators, "deposit_and_score")
	assert.Equal(t, 10.0, got.ViabilityPenalty)
	assert.True(t, got.UseAvgBalance)
}

func TestDetectGaming_BurstAndStop(t *testing.T) {
	facts := models.WalletFacts{TxCount1h: 0, TxCount24hTo1h: 25}
	got := DetectGaming(facts, 0, false)
	assert.Contains(t, got.Indicators, "burst_and_stop")
	assert.Equal(t, 8.0, got.ReliabilityPenalty)
}

func TestDetectGaming_WashTradingScalesWithRatio(t *testing.T) {
	facts := models.WalletFacts{
		Partners: []models.PartnerVolume{
			{Wallet: "0x1", VolumeAToB: 1000, VolumeBToA: 1000},
		},
	}
	got := DetectGaming(facts, 0, false)
	assert.Contains(t, got.Indicators, "wash_trading")
	assert.InDelta(t, 15.0, got.ReliabilityPenalty, 0.01) // ratio=1.0 -> top of scale
	assert.Equal(t, 5.0, got.CompositePenalty)
}

func TestDetectGaming_WashTradingBelowThreshold_NoIndicator(t *testing.T) {
	facts := models.WalletFacts{
		Partners: []models.PartnerVolume{
			{Wallet: "0x1", VolumeAToB: 1000, VolumeBToA: 300},
		},
	}
	got := DetectGaming(facts, 0, false)
	assert.NotContains(t, got.Indicators, "wash_trading")
}

func TestScaledWashPenalty_ClampsAtBounds(t *testing.T) {
	assert.Equal(t, 8.0, scaledWashPenalty(0.40))
	assert.Equal(t, 15.0, scaledWashPenalty(0.80))
	assert.Equal(t, 15.0, scaledWashPenalty(1.0))
	assert.InDelta(t, 11.5, scaledWashPenalty(0.60), 0.01)
}
