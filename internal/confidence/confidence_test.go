package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_ZeroSignals_IsZero(t *testing.T) {
	assert.Equal(t, 0.0, Compute(Signals{}))
}

func TestCompute_FullSignals_IsOne(t *testing.T) {
	got := Compute(Signals{
		TxCount: 200, WalletAgeDays: 365, UniquePartners: 50,
		RatingCount: 20, PriorQueries: 20,
	})
	assert.Equal(t, 1.0, got)
}

func TestCompute_AnyAggregateMissing_CapsAtHalf(t *testing.T) {
	got := Compute(Signals{
		TxCount: 200, WalletAgeDays: 365, UniquePartners: 50,
		RatingCount: 20, PriorQueries: 20, AnyAggregateMissing: true,
	})
	assert.LessOrEqual(t, got, 0.5)
}

func TestCompute_AlwaysWithinUnitRange(t *testing.T) {
	cases := []Signals{
		{},
		{TxCount: -5, WalletAgeDays: -1, UniquePartners: -1, RatingCount: -1, PriorQueries: -1},
		{TxCount: 1e9, WalletAgeDays: 1e6, UniquePartners: 1e6, RatingCount: 1e6, PriorQueries: 1e6},
	}
	for _, c := range cases {
		got := Compute(c)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestImprovementPath_EmptyAboveThreshold(t *testing.T) {
	assert.Empty(t, ImprovementPath(Signals{}, 0.70))
	assert.Empty(t, ImprovementPath(Signals{}, 0.9))
}

func TestImprovementPath_UnknownWalletSuggestsTransactions(t *testing.T) {
	steps := ImprovementPath(Signals{}, 0.0)
	assert.Contains(t, steps, "Complete 10+ transactions")
	assert.LessOrEqual(t, len(steps), 4)
}

func TestDataAvailability_LabelsAllFiveSignals(t *testing.T) {
	got := DataAvailability(Signals{TxCount: 200, WalletAgeDays: 200, UniquePartners: 30, RatingCount: 15, PriorQueries: 15})
	for _, key := range []string{"transactionHistory", "walletAge", "economicData", "identityData", "communityData"} {
		assert.Equal(t, "rich", got[key])
	}
}

func TestDataAvailability_EmptyWalletIsNone(t *testing.T) {
	got := DataAvailability(Signals{})
	for _, v := range got {
		assert.Equal(t, "none", v)
	}
}
