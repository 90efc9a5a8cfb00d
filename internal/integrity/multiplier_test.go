package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_NoTags_ReturnsOne(t *testing.T) {
	assert.Equal(t, 1.0, Compute(nil, nil, 0))
}

func TestCompute_KnownTagAppliesExactFactor(t *testing.T) {
	assert.Equal(t, 0.75, Compute([]string{"single_partner"}, nil, 0))
	assert.Equal(t, 0.5, Compute(nil, []string{"wash_trading"}, 0))
}

func TestCompute_UnknownTagUsesDefaultPenalty(t *testing.T) {
	assert.Equal(t, defaultSybilPenalty, Compute([]string{"unheard_of_rule"}, nil, 0))
	assert.Equal(t, defaultGamingPenalty, Compute(nil, []string{"unheard_of_rule"}, 0))
}

func TestCompute_FraudReportsDecayExponentially(t *testing.T) {
	got := Compute(nil, nil, 3)
	assert.InDelta(t, 0.729, got, 0.001)
}

func TestCompute_FloorsAtTenPercent(t *testing.T) {
	got := Compute([]string{"closed_loop_trading", "coordinated_creation"}, []string{"wash_trading"}, 20)
	assert.Equal(t, floorMultiplier, got)
}

func TestCompute_AlwaysWithinSpecRange(t *testing.T) {
	cases := [][]string{
		{"closed_loop_trading"},
		{"single_partner", "volume_without_diversity"},
		{},
	}
	for _, tags := range cases {
		got := Compute(tags, tags, 10)
		assert.GreaterOrEqual(t, got, 0.10)
		assert.LessOrEqual(t, got, 1.0)
	}
}
