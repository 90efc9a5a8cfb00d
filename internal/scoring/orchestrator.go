// Package scoring hosts the Scoring Orchestrator: the component spec.md
// calls out as the subject of this specification. ComputeOrGetScore runs
// the 12-step pipeline (fetch, fraud, dimensions, composite, modifiers,
// persist), coalescing concurrent callers per wallet and bounding global
// concurrency, grounded on the teacher's ScoringEngine.ScoreTransaction
// (internal/scoring/engine.go).
package scoring

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/adaptive"
	"github.com/walletscore/reputation-engine/internal/chain"
	"github.com/walletscore/reputation-engine/internal/confidence"
	"github.com/walletscore/reputation-engine/internal/dimensions"
	"github.com/walletscore/reputation-engine/internal/events"
	"github.com/walletscore/reputation-engine/internal/fraud"
	"github.com/walletscore/reputation-engine/internal/integrity"
	"github.com/walletscore/reputation-engine/internal/models"
	"github.com/walletscore/reputation-engine/internal/repositories"
	"github.com/walletscore/reputation-engine/internal/scoreerr"
	"github.com/walletscore/reputation-engine/internal/trajectory"
)

// ModelVersion is written with every persisted score and included in every
// response (spec §6).
const ModelVersion = "2.1.0"

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Options configures one ComputeOrGetScore call (spec §4.1).
type Options struct {
	ForceRefresh bool
	Timeout      time.Duration
	StaleOk      bool
}

// DefaultOptions returns Options with staleOk defaulted true per spec.
func DefaultOptions() Options {
	return Options{StaleOk: true}
}

// Orchestrator is the Scoring Orchestrator.
type Orchestrator struct {
	cfg *configs.Config

	scoreRepo    *repositories.ScoreRepository
	walletRepo   *repositories.WalletRepository
	transferRepo *repositories.TransferRepository
	outcomeRepo  *repositories.OutcomeRepository
	adaptiveRepo *repositories.AdaptiveRepository

	reader    *chain.Reader
	publisher *events.Publisher

	coalescer *coalescer
}

func NewOrchestrator(
	cfg *configs.Config,
	scoreRepo *repositories.ScoreRepository,
	walletRepo *repositories.WalletRepository,
	transferRepo *repositories.TransferRepository,
	outcomeRepo *repositories.OutcomeRepository,
	adaptiveRepo *repositories.AdaptiveRepository,
	reader *chain.Reader,
	publisher *events.Publisher,
) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		scoreRepo:    scoreRepo,
		walletRepo:   walletRepo,
		transferRepo: transferRepo,
		outcomeRepo:  outcomeRepo,
		adaptiveRepo: adaptiveRepo,
		reader:       reader,
		publisher:    publisher,
		coalescer:    newCoalescer(cfg.Scan.MaxConcurrentScans, cfg.Scan.MaxQueue),
	}
}

// ComputeOrGetScore implements the Orchestrator's public contract (spec
// §4.1).
func (o *Orchestrator) ComputeOrGetScore(ctx context.Context, wallet string, opts Options) (*models.FullScoreResponse, error) {
	if !walletPattern.MatchString(wallet) {
		return nil, fmt.Errorf("wallet %q: %w", wallet, scoreerr.ErrInvalidWallet)
	}

	if !opts.ForceRefresh {
		existing, err := o.scoreRepo.GetByWallet(ctx, wallet)
		if err != nil {
			log.Error().Err(err).Str("wallet", wallet).Msg("scoring: failed to load cached score")
		}
		if existing != nil {
			now := time.Now().UTC()
			if now.Before(existing.ExpiresAt) {
				return o.buildResponse(ctx, existing, false), nil
			}
			if opts.StaleOk {
				stale := o.buildResponse(ctx, existing, true)
				go func() {
					bg := context.Background()
					if _, err := o.runCoalesced(bg, wallet); err != nil {
						log.Warn().Err(err).Str("wallet", wallet).Msg("scoring: background refresh failed")
					}
				}()
				return stale, nil
			}
		}
	}

	if opts.Timeout > 0 {
		return o.computeWithTimeout(ctx, wallet, opts.Timeout)
	}

	return o.runCoalesced(ctx, wallet)
}

func (o *Orchestrator) computeWithTimeout(ctx context.Context, wallet string, timeout time.Duration) (*models.FullScoreResponse, error) {
	resultCh := make(chan struct {
		resp *models.FullScoreResponse
		err  error
	}, 1)

	go func() {
		bg := context.Background()
		resp, err := o.runCoalesced(bg, wallet)
		resultCh <- struct {
			resp *models.FullScoreResponse
			err  error
		}{resp, err}
	}()

	select {
	case r := <-resultCh:
		return r.resp, r.err
	case <-time.After(timeout):
		return zeroScoreResponse(wallet), nil
	case <-ctx.Done():
		return zeroScoreResponse(wallet), ctx.Err()
	}
}

func (o *Orchestrator) runCoalesced(ctx context.Context, wallet string) (*models.FullScoreResponse, error) {
	return o.coalescer.run(strings.ToLower(wallet), func() (*models.FullScoreResponse, error) {
		return o.runPipeline(ctx, wallet)
	})
}

// runPipeline executes the 12-step pipeline (spec §4.1 steps 1-12).
func (o *Orchestrator) runPipeline(ctx context.Context, wallet string) (*models.FullScoreResponse, error) {
	now := time.Now().UTC()

	// Step 1: previous score (for dampening) and history (for trajectory).
	previous, err := o.scoreRepo.GetByWallet(ctx, wallet)
	if err != nil {
		log.Error().Err(err).Str("wallet", wallet).Msg("scoring: failed to load previous score")
	}
	history, err := o.scoreRepo.GetHistory(ctx, wallet, 60)
	if err != nil {
		log.Error().Err(err).Str("wallet", wallet).Msg("scoring: failed to load score history")
	}

	// Step 2: fetch chain facts and local aggregates in parallel.
	facts, err := o.fetchFacts(ctx, wallet)
	if err != nil {
		if errors.Is(err, scoreerr.ErrChainUnreachable) {
			return o.fallbackResponse(wallet, previous), err
		}
		log.Error().Err(err).Str("wallet", wallet).Msg("scoring: unexpected pipeline error")
		return zeroScoreResponse(wallet), nil
	}

	ratingCount, err := o.outcomeRepo.CountResolvedOutcomes(ctx, wallet)
	if err != nil {
		facts.AnyAggregateMissing = true
	}
	fraudReportCount, err := o.outcomeRepo.CountFraudReports(ctx, wallet, now)
	if err != nil {
		facts.AnyAggregateMissing = true
	}

	// Confidence is computed early: it feeds dampening (step 9) as well as
	// the response (step 11).
	sig := confidence.Signals{
		TxCount:             facts.TotalTxCount,
		WalletAgeDays:       facts.WalletAgeDays,
		UniquePartners:      facts.UniquePartners,
		RatingCount:         ratingCount,
		PriorQueries:        facts.TotalQueryCount,
		AnyAggregateMissing: facts.AnyAggregateMissing,
	}
	conf := confidence.Compute(sig)

	// Step 3: Fraud Engine (sybil then gaming).
	sybilResult := fraud.DetectSybil(facts)
	recentScoreLookup := facts.RecentQueryCount > 0
	gamingResult := fraud.DetectGaming(facts, facts.USDCBalance, recentScoreLookup)

	viabilityBalance := facts.USDCBalance
	if gamingResult.UseAvgBalance {
		viabilityBalance = facts.AvgBalance24h
	}

	trend := "stable"
	if metrics, mErr := o.walletRepo.GetMetrics(ctx, wallet); mErr == nil && metrics != nil {
		trend = metrics.TrendBin
	}

	curves := o.curvesForRun(ctx)

	// Step 4: Dimension Calculators.
	dims := map[string]models.DimensionResult{
		"reliability": dimensions.Reliability(facts, curves, o.cfg.Chain.BlocksPerDay),
		"viability":   dimensions.Viability(facts, viabilityBalance, trend, curves),
		"identity":    dimensions.Identity(facts),
		"capability":  dimensions.Capability(facts),
		"behavior":    dimensions.Behavior(facts),
	}

	// Step 5: apply sybil caps.
	if sybilResult.CapReliability != nil {
		dims["reliability"] = capDimension(dims["reliability"], *sybilResult.CapReliability)
	}
	if sybilResult.CapIdentity != nil {
		dims["identity"] = capDimension(dims["identity"], *sybilResult.CapIdentity)
	}
	dims["reliability"] = applyGamingPenalty(dims["reliability"], gamingResult.ReliabilityPenalty)
	dims["viability"] = applyGamingPenalty(dims["viability"], gamingResult.ViabilityPenalty)

	// Step 6: weighted composite.
	weights := o.effectiveWeights(ctx)
	rawComposite := 0.0
	for name, w := range weights {
		rawComposite += w * float64(dims[name].Score)
	}
	composite := int(roundHalfAway(rawComposite))

	// Step 7: integrity multiplier + gaming composite penalty, clamp.
	integrityMultiplier := integrity.Compute(sybilResult.Indicators, gamingResult.Indicators, fraudReportCount)
	composite = clampScore(int(roundHalfAway(float64(composite)*integrityMultiplier)) - int(gamingResult.CompositePenalty))

	// Step 8: trajectory modifier.
	traj := trajectory.Compute(history, now)
	composite = clampScore(composite + traj.Modifier)

	// Step 9: confidence-weighted dampening against previousScore.
	var previousComposite *int
	if previous != nil {
		v := previous.Composite
		previousComposite = &v
	}
	composite = dampen(previousComposite, composite, conf, o.cfg.Dampening)

	// Step 10: tier + recommendation.
	tier := tierFor(composite)
	recommendation := recommendationFor(composite, sybilResult.Flag, conf)

	// Step 11: data availability + improvement path.
	dataAvailability := confidence.DataAvailability(sig)
	improvementPath := confidence.ImprovementPath(sig, conf)

	ttl := ttlFor(conf, time.Duration(o.cfg.Scan.TTLMs)*time.Millisecond)

	score := &models.Score{
		Wallet:              wallet,
		Composite:           composite,
		Reliability:         dims["reliability"].Score,
		Viability:           dims["viability"].Score,
		Identity:            dims["identity"].Score,
		Capability:          dims["capability"].Score,
		Behavior:            dims["behavior"].Score,
		Tier:                tier,
		Confidence:          conf,
		Recommendation:      recommendation,
		ModelVersion:        ModelVersion,
		SybilFlag:           sybilResult.Flag,
		SybilIndicators:     sybilResult.Indicators,
		GamingIndicators:    gamingResult.Indicators,
		IntegrityMultiplier: integrityMultiplier,
		RawSnapshot:         snapshotBlob(facts, dims),
		CalculatedAt:        now,
		ExpiresAt:           now.Add(ttl),
	}

	// Step 12: persist, then best-effort publish.
	if err := o.scoreRepo.UpsertWithHistory(ctx, score); err != nil {
		log.Error().Err(err).Str("wallet", wallet).Msg("scoring: failed to persist score")
		return nil, fmt.Errorf("persist score: %w: %w", err, scoreerr.ErrStore)
	}

	o.publisher.PublishScoreComputed(ctx, events.ScoreComputedEvent{
		Wallet:       wallet,
		Score:        composite,
		Tier:         string(tier),
		SybilFlag:    sybilResult.Flag,
		ComputedAt:   now,
		ModelVersion: ModelVersion,
	})

	resp := o.buildResponse(ctx, score, false)
	resp.ScoreHistory = append(history, models.ScoreHistory{
		Wallet: wallet, Score: composite, Confidence: conf,
		ModelVersion: ModelVersion, CalculatedAt: now,
	})
	resp.DataAvailability = dataAvailability
	resp.ImprovementPath = improvementPath
	return resp, nil
}

func (o *Orchestrator) effectiveWeights(ctx context.Context) map[string]float64 {
	defaults := adaptive.DefaultWeights(o.cfg.Weights)
	state, err := o.adaptiveRepo.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("scoring: failed to load adaptive weights, using defaults")
		return defaults
	}
	return adaptive.GetEffectiveWeights(state, defaults)
}

func (o *Orchestrator) curvesForRun(ctx context.Context) dimensions.CurveSet {
	state, err := o.adaptiveRepo.Load(ctx)
	if err != nil || state == nil {
		return dimensions.NewCurveSet(nil)
	}
	overrides, ok := adaptive.DecodeBreakpoints(state.Breakpoints)
	if !ok {
		return dimensions.NewCurveSet(nil)
	}
	return dimensions.NewCurveSet(overrides)
}

// buildResponse assembles a FullScoreResponse from a persisted Score row
// without re-running the pipeline (cache-hit / stale-serve paths).
func (o *Orchestrator) buildResponse(ctx context.Context, s *models.Score, stale bool) *models.FullScoreResponse {
	now := time.Now().UTC()
	history, err := o.scoreRepo.GetHistory(ctx, s.Wallet, 60)
	if err != nil {
		log.Warn().Err(err).Str("wallet", s.Wallet).Msg("scoring: failed to load history for response")
	}

	return &models.FullScoreResponse{
		Wallet:              s.Wallet,
		Score:               s.Composite,
		Tier:                s.Tier,
		Confidence:          s.Confidence,
		Recommendation:      s.Recommendation,
		ModelVersion:        s.ModelVersion,
		LastUpdated:         s.CalculatedAt,
		ComputedAt:          s.CalculatedAt,
		ScoreFreshness:      freshness(now.Unix(), s.CalculatedAt.Unix(), s.ExpiresAt.Unix()),
		Stale:               stale,
		SybilFlag:           s.SybilFlag,
		GamingIndicators:    s.GamingIndicators,
		Dimensions: map[string]int{
			"reliability": s.Reliability,
			"viability":   s.Viability,
			"identity":    s.Identity,
			"capability":  s.Capability,
			"behavior":    s.Behavior,
		},
		ImprovementPath:     nil,
		ScoreHistory:        history,
		IntegrityMultiplier: s.IntegrityMultiplier,
	}
}

// fallbackResponse serves the last-known row (possibly nil) when the
// Chain Reader is unreachable mid-pipeline (spec §7).
func (o *Orchestrator) fallbackResponse(wallet string, previous *models.Score) *models.FullScoreResponse {
	if previous != nil {
		resp := o.buildResponse(context.Background(), previous, true)
		resp.ScoreFreshness = 0
		return resp
	}
	return zeroScoreResponse(wallet)
}

func zeroScoreResponse(wallet string) *models.FullScoreResponse {
	now := time.Now().UTC()
	return &models.FullScoreResponse{
		Wallet:          wallet,
		Score:           0,
		Tier:            models.TierUnverified,
		Confidence:      0,
		Recommendation:  models.RecommendationInsufficientHistory,
		ModelVersion:    ModelVersion,
		LastUpdated:     now,
		ComputedAt:      now,
		ScoreFreshness:  0,
		Dimensions:      map[string]int{"reliability": 0, "viability": 0, "identity": 0, "capability": 0, "behavior": 0},
		ImprovementPath: []string{"Complete 10+ transactions"},
	}
}

func capDimension(d models.DimensionResult, cap int) models.DimensionResult {
	if d.Score > cap {
		d.Score = cap
	}
	return d
}

// applyGamingPenalty subtracts a Gaming Detector penalty magnitude from a
// dimension score (spec §4.3 — penalties are stored as positive magnitudes
// on GamingResult but always lower the affected dimension).
func applyGamingPenalty(d models.DimensionResult, penalty float64) models.DimensionResult {
	if penalty == 0 {
		return d
	}
	d.Score = clampScore(int(roundHalfAway(float64(d.Score) - penalty)))
	return d
}

func roundHalfAway(v float64) float64 {
	if v < 0 {
		return -roundHalfAway(-v)
	}
	return float64(int64(v + 0.5))
}

func snapshotBlob(facts models.WalletFacts, dims map[string]models.DimensionResult) models.JSONB {
	blob := models.JSONB{
		"wallet_age_days": facts.WalletAgeDays,
		"tx_count":        facts.TotalTxCount,
		"usdc_balance":    facts.USDCBalance,
	}
	for name, d := range dims {
		if d.Data != nil {
			blob[name] = d.Data
		}
	}
	return blob
}
