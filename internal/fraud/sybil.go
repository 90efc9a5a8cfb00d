// Package fraud implements the two pure analyzers that read only the
// local store and never touch chain state directly (spec §4.3): the
// Sybil Detector and the Gaming Detector.
package fraud

import (
	"strings"
	"time"

	"github.com/walletscore/reputation-engine/internal/models"
)

// SybilResult is the Sybil Detector's output: a flag, an ordered set of
// indicator tags, and per-dimension caps (the minimum cap per dimension
// wins when multiple rules fire).
type SybilResult struct {
	Flag        bool
	Indicators  []string
	CapReliability *int
	CapIdentity    *int
}

func (r *SybilResult) addIndicator(tag string) {
	for _, existing := range r.Indicators {
		if existing == tag {
			return
		}
	}
	r.Indicators = append(r.Indicators, tag)
	r.Flag = true
}

func (r *SybilResult) capReliability(v int) {
	if r.CapReliability == nil || v < *r.CapReliability {
		r.CapReliability = &v
	}
}

func (r *SybilResult) capIdentity(v int) {
	if r.CapIdentity == nil || v < *r.CapIdentity {
		r.CapIdentity = &v
	}
}

// DetectSybil runs all seven rules against a wallet's fetched facts (spec
// §4.3). Pure: never mutates facts, never throws on empty data.
func DetectSybil(facts models.WalletFacts) SybilResult {
	result := SybilResult{}

	partners := facts.Partners
	partnerCount := len(partners)

	totalVolume := 0.0
	for _, p := range partners {
		totalVolume += p.TotalVolume()
	}

	// 1. closed_loop_trading: top-3 partners hold >90% of volume AND ≥3 partners.
	if partnerCount >= 3 && totalVolume > 0 {
		top3 := topNVolume(partners, 3)
		if top3/totalVolume > 0.90 {
			result.addIndicator("closed_loop_trading")
			result.capReliability(40)
		}
	}

	// 2. symmetric_transactions: >50% of partnerships near-symmetric.
	if partnerCount > 0 {
		symmetric := 0
		for _, p := range partners {
			if p.VolumeAToB == 0 || p.VolumeBToA == 0 {
				continue
			}
			maxVol := p.VolumeAToB
			if p.VolumeBToA > maxVol {
				maxVol = p.VolumeBToA
			}
			diff := p.VolumeAToB - p.VolumeBToA
			if diff < 0 {
				diff = -diff
			}
			if diff/maxVol < 0.10 {
				symmetric++
			}
		}
		if float64(symmetric)/float64(partnerCount) > 0.50 {
			result.addIndicator("symmetric_transactions")
			result.capReliability(30)
		}
	}

	// 3. coordinated_creation: wallet and top-partner first_seen within 24h.
	if facts.TopPartner != nil && !facts.FirstSeen.IsZero() && !facts.TopPartner.FirstSeen.IsZero() {
		delta := facts.FirstSeen.Sub(facts.TopPartner.FirstSeen)
		if delta < 0 {
			delta = -delta
		}
		if delta <= 24*time.Hour {
			result.addIndicator("coordinated_creation")
			result.capIdentity(50)
		}
	}

	// 4. single_partner: exactly one partnership AND tx_count >= 5.
	if partnerCount == 1 && facts.TotalTxCount >= 5 {
		result.addIndicator("single_partner")
		result.capReliability(35)
	}

	// 5. volume_without_diversity: tx_count > 50 AND partners < 5.
	if facts.TotalTxCount > 50 && partnerCount < 5 {
		result.addIndicator("volume_without_diversity")
		result.capReliability(45)
	}

	// 6. funded_by_top_partner: earliest inbound sender == top-volume partner.
	if facts.TopPartner != nil && facts.EarliestInboundSender != "" &&
		strings.EqualFold(facts.EarliestInboundSender, facts.TopPartner.Wallet) {
		result.addIndicator("funded_by_top_partner")
		result.capIdentity(40)
		result.capReliability(35)
	}

	// 7. tight_cluster: among top-5 partners, >50% of possible pairs relate.
	if partnerCount >= 2 {
		top5 := topNPartners(partners, 5)
		pairs, related := 0, 0
		for i := 0; i < len(top5); i++ {
			for j := i + 1; j < len(top5); j++ {
				pairs++
				if top5[i].HasOwnRelationshipWith != nil && top5[i].HasOwnRelationshipWith[strings.ToLower(top5[j].Wallet)] {
					related++
				}
			}
		}
		if pairs > 0 && float64(related)/float64(pairs) > 0.50 {
			result.addIndicator("tight_cluster")
			result.capReliability(30)
			result.capIdentity(40)
		}
	}

	return result
}

func topNVolume(partners []models.PartnerVolume, n int) float64 {
	sorted := topNPartners(partners, n)
	sum := 0.0
	for _, p := range sorted {
		sum += p.TotalVolume()
	}
	return sum
}

// topNPartners returns up to n partners with the highest total volume,
// without mutating the input slice.
func topNPartners(partners []models.PartnerVolume, n int) []models.PartnerVolume {
	sorted := make([]models.PartnerVolume, len(partners))
	copy(sorted, partners)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].TotalVolume() > sorted[i].TotalVolume() {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
