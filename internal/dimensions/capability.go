package dimensions

import (
	"math"

	"github.com/walletscore/reputation-engine/internal/models"
)

// Capability computes the Capability dimension (spec §4.4). Replications
// and domains-owned are read from the local store; where absent in the
// current registry (no enrichment metadata indexed yet) they evaluate to 0.
func Capability(facts models.WalletFacts) models.DimensionResult {
	data := models.JSONB{}

	serviceScore := 0.0
	switch {
	case facts.ServiceCount >= 4:
		serviceScore = 30
	case facts.ServiceCount >= 2:
		serviceScore = 25
	case facts.ServiceCount == 1:
		serviceScore = 15
	}
	data["service_count_score"] = serviceScore

	revenueScore := 0.0
	switch {
	case facts.TotalRevenue > 500:
		revenueScore = 30
	case facts.TotalRevenue > 50:
		revenueScore = 20
	case facts.TotalRevenue > 1:
		revenueScore = 10
	}
	data["revenue_score"] = revenueScore

	domainsScore := 0.0
	switch {
	case facts.DomainsOwned >= 2:
		domainsScore = 20
	case facts.DomainsOwned == 1:
		domainsScore = 10
	}
	data["domains_score"] = domainsScore

	replicationsScore := 0.0
	switch {
	case facts.Replications >= 2:
		replicationsScore = 20
	case facts.Replications == 1:
		replicationsScore = 10
	}
	data["replications_score"] = replicationsScore

	total := serviceScore + revenueScore + domainsScore + replicationsScore
	score := int(math.Round(clamp(total, 0, 100)))
	return models.DimensionResult{Score: score, Data: data}
}
