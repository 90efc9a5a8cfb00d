package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLFor_ClampsToSpecBounds(t *testing.T) {
	assert.Equal(t, minTTL, ttlFor(0, time.Minute))
	assert.Equal(t, maxTTL, ttlFor(1.0, 10*time.Hour))
}

func TestTTLFor_HigherConfidenceYieldsLongerTTL(t *testing.T) {
	base := time.Hour
	low := ttlFor(0.1, base)
	high := ttlFor(0.9, base)
	assert.Greater(t, high, low)
}

func TestTTLFor_DefaultBaseAtZeroConfidence(t *testing.T) {
	got := ttlFor(0, time.Hour)
	assert.Equal(t, 30*time.Minute, got)
}

func TestTTLFor_DefaultBaseAtFullConfidence(t *testing.T) {
	got := ttlFor(1.0, time.Hour)
	assert.Equal(t, 90*time.Minute, got)
}
