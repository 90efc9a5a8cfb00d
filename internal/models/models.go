// Package models holds the persisted and in-flight record shapes for the
// wallet reputation scoring core.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB is a generic container for opaque blobs (raw-input snapshots,
// dimension data blobs) stored as Postgres JSONB columns.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("models: JSONB scan source is not []byte")
	}
	return json.Unmarshal(bytes, j)
}

// Tier is the coarse label derived from a composite score (spec §4.8).
type Tier string

const (
	TierElite       Tier = "Elite"
	TierTrusted     Tier = "Trusted"
	TierEstablished Tier = "Established"
	TierEmerging    Tier = "Emerging"
	TierUnverified  Tier = "Unverified"
)

// Recommendation is the action label derived from composite/sybil/confidence.
type Recommendation string

const (
	RecommendationFlaggedForReview   Recommendation = "flagged_for_review"
	RecommendationHighRisk           Recommendation = "high_risk"
	RecommendationInsufficientHistory Recommendation = "insufficient_history"
	RecommendationProceedWithCaution Recommendation = "proceed_with_caution"
	RecommendationProceed           Recommendation = "proceed"
)

// Outcome labels attached by OutcomeMatcher (spec §4.10).
type OutcomeLabel string

const (
	OutcomeSuccessfulTx         OutcomeLabel = "successful_tx"
	OutcomeMultipleSuccessfulTx OutcomeLabel = "multiple_successful_tx"
	OutcomeFraudReport          OutcomeLabel = "fraud_report"
	OutcomeNoActivity           OutcomeLabel = "no_activity"
)

// Score is the current cached result for a wallet (spec §3).
type Score struct {
	Wallet            string         `json:"wallet"`
	Composite         int            `json:"score"`
	Reliability       int            `json:"reliability"`
	Viability         int            `json:"viability"`
	Identity          int            `json:"identity"`
	Capability        int            `json:"capability"`
	Behavior          int            `json:"behavior"`
	Tier              Tier           `json:"tier"`
	Confidence        float64        `json:"confidence"`
	Recommendation    Recommendation `json:"recommendation"`
	ModelVersion      string         `json:"model_version"`
	SybilFlag         bool           `json:"sybil_flag"`
	SybilIndicators   []string       `json:"sybil_indicators"`
	GamingIndicators  []string       `json:"gaming_indicators"`
	IntegrityMultiplier float64      `json:"integrity_multiplier"`
	RawSnapshot       JSONB          `json:"raw_snapshot,omitempty"`
	CalculatedAt      time.Time      `json:"calculated_at"`
	ExpiresAt         time.Time      `json:"expires_at"`
}

// ScoreHistory is an append-only time series row (spec §3).
type ScoreHistory struct {
	ID           int64     `json:"id"`
	Wallet       string    `json:"wallet"`
	Score        int       `json:"score"`
	Confidence   float64   `json:"confidence"`
	ModelVersion string    `json:"model_version"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// ScoreOutcome labels a prior score with what subsequently happened (spec §3).
type ScoreOutcome struct {
	ID           int64          `json:"id"`
	Wallet       string         `json:"wallet"`
	Requester    string         `json:"requester"`
	Label        OutcomeLabel   `json:"label"`
	Dimensions   DimensionSnapshot `json:"dimensions"`
	QueriedAt    time.Time      `json:"queried_at"`
	ResolvedAt   time.Time      `json:"resolved_at"`
}

// DimensionSnapshot captures the five dimension values at query time, used
// by the adaptive layer to compute mean_pos/mean_neg per dimension.
type DimensionSnapshot struct {
	Reliability *int `json:"reliability,omitempty"`
	Viability   *int `json:"viability,omitempty"`
	Identity    *int `json:"identity,omitempty"`
	Capability  *int `json:"capability,omitempty"`
	Behavior    *int `json:"behavior,omitempty"`
}

// RawTransfer is a single indexed transfer event (spec §3). Written
// exclusively by the external chain indexer; the core only reads it.
type RawTransfer struct {
	TxHash    string    `json:"tx_hash"`
	Block     int64     `json:"block"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// WalletIndex holds per-wallet aggregates maintained by the chain indexer.
type WalletIndex struct {
	Wallet         string    `json:"wallet"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	TotalTxCount   int64     `json:"total_tx_count"`
	TotalVolumeIn  float64   `json:"total_volume_in"`
	TotalVolumeOut float64   `json:"total_volume_out"`
	UniquePartners int       `json:"unique_partners"`
}

// RelationshipPair is a canonicalized undirected partner relationship
// (smaller address first; see spec §9 "cyclic pair graph").
type RelationshipPair struct {
	WalletA       string    `json:"wallet_a"`
	WalletB       string    `json:"wallet_b"`
	VolumeAToB    float64   `json:"volume_a_to_b"`
	VolumeBToA    float64   `json:"volume_b_to_a"`
	FirstInteract time.Time `json:"first_interaction"`
	LastInteract  time.Time `json:"last_interaction"`
}

// WalletSnapshot is a periodic balance sample for trend/gaming detection.
type WalletSnapshot struct {
	Wallet      string    `json:"wallet"`
	TakenAt     time.Time `json:"taken_at"`
	USDCBalance float64   `json:"usdc_balance"`
	EthBalance  float64   `json:"eth_balance"`
}

// WalletMetrics is the HourlyRefresh job's recomputed aggregate row.
type WalletMetrics struct {
	Wallet       string    `json:"wallet"`
	TxCount24h   int64     `json:"tx_count_24h"`
	TxCount7d    int64     `json:"tx_count_7d"`
	TxCount30d   int64     `json:"tx_count_30d"`
	Volume24h    float64   `json:"volume_24h"`
	Volume7d     float64   `json:"volume_7d"`
	Volume30d    float64   `json:"volume_30d"`
	Partners     int       `json:"partners"`
	TrendBin     string    `json:"trend_bin"` // freefall, declining, stable, rising
	ComputedAt   time.Time `json:"computed_at"`
}

// QueryLog records every paid/free request, feeding the outcome matcher.
type QueryLog struct {
	ID        int64     `json:"id"`
	Requester string    `json:"requester"`
	Target    string    `json:"target"`
	Endpoint  string    `json:"endpoint"`
	Timestamp time.Time `json:"timestamp"`
}

// AdaptiveState is the current dimension weights and breakpoint offsets,
// keyed by a well-known state name (spec §3).
type AdaptiveState struct {
	Name        string             `json:"name"`
	Weights     map[string]float64 `json:"weights"`
	Breakpoints JSONB              `json:"breakpoints"`
	SampleSize  int                `json:"sample_size"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// WalletFacts is the point-in-time snapshot fetched by the Chain Reader and
// local-aggregate reads, consumed synchronously by the rest of the pipeline
// (spec §4.1 step 2, §9 "point-in-time snapshot").
type WalletFacts struct {
	Wallet string

	USDCBalance   float64
	EthBalanceWei float64
	Nonce         uint64
	HasBasename   bool
	InAgentRegistry bool

	TotalIn, TotalOut     float64
	In24h, Out24h         float64
	In7d, Out7d           float64
	In30d, Out30d         float64
	TxCount24h, TxCount7d int64
	TxCount1h             int64
	TxCount24hTo1h        int64 // tx count in the (24h ago, 1h ago] window
	FirstBlock, LastBlock int64
	WalletAgeDays         float64
	AvgBalance24h         float64

	TotalTxCount   int64
	UniquePartners int
	Partners       []PartnerVolume
	TopPartner     *PartnerVolume
	EarliestInboundSender string
	RecentQueryCount      int // queries in the last hour, feeds Gaming's deposit_and_score rule
	TotalQueryCount       int // all-time query count, feeds Confidence's prior-query signal
	LastScoreQueryAgo     *time.Duration
	LastActivityAgo       *time.Duration

	// AnyAggregateMissing records whether a required local-store aggregate
	// failed to load and was degraded to zero/empty (spec §7 — confidence
	// never rises above 0.5 in that case).
	AnyAggregateMissing bool

	TransferTimestamps []time.Time // for Behavior dimension, ≥5 required

	FirstSeen time.Time

	// Identity/Capability enrichment signals. These are sourced from the
	// agent registry's on-chain metadata where available; the reader
	// leaves them at their zero value when no registry entry exists
	// (spec §4.4 Identity/Capability — "where absent ... evaluate to 0").
	SelfRegistered   bool
	GitHubVerified   bool
	GitHubStars      int
	GitHubPushedDays float64 // days since last push, -1 if unknown
	ServiceCount     int
	TotalRevenue     float64
	DomainsOwned     int
	Replications     int
}

// PartnerVolume is one counterparty's aggregated bidirectional volume.
type PartnerVolume struct {
	Wallet       string
	VolumeAToB   float64 // this wallet -> partner
	VolumeBToA   float64 // partner -> this wallet
	FirstSeen    time.Time
	HasOwnRelationshipWith map[string]bool // used by tight_cluster
}

// TotalVolume returns the sum of both directions with a partner.
func (p PartnerVolume) TotalVolume() float64 {
	return p.VolumeAToB + p.VolumeBToA
}

// DimensionResult is the tagged-variant record every dimension calculator
// returns (spec §9 "dynamic dispatch / duck typing ... tagged variants or
// homogeneous records").
type DimensionResult struct {
	Score           int
	InsufficientData bool
	Data            JSONB
}

// FullScoreResponse is the logical shape exposed by ComputeOrGetScore
// (spec §6).
type FullScoreResponse struct {
	Wallet          string         `json:"wallet"`
	Score           int            `json:"score"`
	Tier            Tier           `json:"tier"`
	Confidence      float64        `json:"confidence"`
	Recommendation  Recommendation `json:"recommendation"`
	ModelVersion    string         `json:"model_version"`
	LastUpdated     time.Time      `json:"last_updated"`
	ComputedAt      time.Time      `json:"computed_at"`
	ScoreFreshness  float64        `json:"score_freshness"`
	Stale           bool           `json:"stale,omitempty"`

	SybilFlag         bool            `json:"sybil_flag"`
	GamingIndicators  []string        `json:"gaming_indicators"`
	Dimensions        map[string]int  `json:"dimensions"`
	DataAvailability  map[string]string `json:"data_availability"`
	ImprovementPath   []string        `json:"improvement_path"`
	ScoreHistory      []ScoreHistory  `json:"score_history,omitempty"`
	IntegrityMultiplier float64       `json:"integrity_multiplier,omitempty"`
}
