package dimensions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/walletscore/reputation-engine/internal/models"
)

func TestBehavior_FewerThanFiveTimestamps_InsufficientData(t *testing.T) {
	facts := models.WalletFacts{TransferTimestamps: []time.Time{time.Now(), time.Now()}}
	got := Behavior(facts)
	assert.Equal(t, 50, got.Score)
	assert.True(t, got.InsufficientData)
}

func TestBehavior_RegularDailyActivity_ClassifiesAndScores(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	var timestamps []time.Time
	for i := 0; i < 20; i++ {
		timestamps = append(timestamps, base.Add(time.Duration(i)*24*time.Hour))
	}
	got := Behavior(models.WalletFacts{TransferTimestamps: timestamps})
	assert.False(t, got.InsufficientData)
	assert.GreaterOrEqual(t, got.Score, 0)
	assert.LessOrEqual(t, got.Score, 100)
	assert.Contains(t, []string{"organic", "mixed", "automated", "suspicious"}, got.Data["classification"])
}

func TestReliability_ZeroFacts_ScoresZero(t *testing.T) {
	curves := NewCurveSet(nil)
	got := Reliability(models.WalletFacts{}, curves, 43200)
	assert.Equal(t, 0, got.Score)
}

func TestReliability_StrongFacts_ScoresHigh(t *testing.T) {
	curves := NewCurveSet(nil)
	ago := time.Hour
	facts := models.WalletFacts{
		TotalTxCount:    2000,
		Nonce:           5000,
		FirstBlock:      0,
		LastBlock:       43200 * 120,
		LastActivityAgo: &ago,
	}
	got := Reliability(facts, curves, 43200)
	assert.Equal(t, 100, got.Score) // clamps at 100
}

func TestReliability_NeverExceedsOneHundred(t *testing.T) {
	curves := NewCurveSet(nil)
	ago := time.Minute
	facts := models.WalletFacts{
		TotalTxCount:    1_000_000,
		Nonce:           1_000_000,
		FirstBlock:      0,
		LastBlock:       43200 * 10000,
		LastActivityAgo: &ago,
	}
	got := Reliability(facts, curves, 43200)
	assert.LessOrEqual(t, got.Score, 100)
}
