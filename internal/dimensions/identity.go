package dimensions

import (
	"math"

	"github.com/walletscore/reputation-engine/internal/models"
)

var identityAgeThresholds = []Breakpoint{
	{X: 180, Y: 25},
	{X: 90, Y: 20},
	{X: 30, Y: 15},
	{X: 7, Y: 8},
	{X: 0, Y: 2},
}

// Identity computes the Identity dimension (spec §4.4).
func Identity(facts models.WalletFacts) models.DimensionResult {
	data := models.JSONB{}
	total := 0.0

	if facts.SelfRegistered {
		total += 10
		data["self_registered"] = true
	}
	if facts.HasBasename {
		total += 15
		data["has_basename"] = true
	}
	if facts.GitHubVerified {
		total += 20
		data["github_verified"] = true

		switch {
		case facts.GitHubStars >= 5:
			total += 5
		case facts.GitHubStars >= 1:
			total += 3
		}

		if facts.GitHubPushedDays >= 0 {
			switch {
			case facts.GitHubPushedDays <= 30:
				total += 10
			case facts.GitHubPushedDays <= 90:
				total += 5
			}
		}
	}
	if facts.InAgentRegistry {
		total += 20
		data["in_agent_registry"] = true
	}

	ageScore := Stepped(identityAgeThresholds, facts.WalletAgeDays)
	total += ageScore
	data["wallet_age_score"] = ageScore

	score := int(math.Round(clamp(total, 0, 100)))
	return models.DimensionResult{Score: score, Data: data}
}
