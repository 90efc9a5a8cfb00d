package jobs

import (
	"context"
	"time"

	"github.com/walletscore/reputation-engine/internal/models"
	"github.com/walletscore/reputation-engine/internal/repositories"
)

const (
	outcomeObservationWindow = 30 * 24 * time.Hour
	outcomeBatchLimit        = 2000
	outcomeYieldEvery        = 25
)

// OutcomeMatcher labels logged lookups (every query_log row, paid or free)
// with what subsequently happened to the (requester, target) pair (spec §4.10).
type OutcomeMatcher struct {
	outcomeRepo  *repositories.OutcomeRepository
	transferRepo *repositories.TransferRepository
	scoreRepo    *repositories.ScoreRepository
}

func NewOutcomeMatcher(
	outcomeRepo *repositories.OutcomeRepository,
	transferRepo *repositories.TransferRepository,
	scoreRepo *repositories.ScoreRepository,
) *OutcomeMatcher {
	return &OutcomeMatcher{outcomeRepo: outcomeRepo, transferRepo: transferRepo, scoreRepo: scoreRepo}
}

func (j *OutcomeMatcher) Name() string { return "outcome_matcher" }

func (j *OutcomeMatcher) Run(ctx context.Context) error {
	now := time.Now().UTC()

	pending, err := j.outcomeRepo.PendingQueries(ctx, now.Add(-outcomeObservationWindow), outcomeBatchLimit)
	if err != nil {
		return err
	}

	for i, p := range pending {
		if i > 0 && i%outcomeYieldEvery == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				time.Sleep(0) // cooperative yield (spec §4.10)
			}
		}

		if err := j.resolveOne(ctx, p, now); err != nil {
			continue
		}
	}
	return nil
}

func (j *OutcomeMatcher) resolveOne(ctx context.Context, p repositories.PendingQuery, now time.Time) error {
	windowEnd := p.QueriedAt.Add(outcomeObservationWindow)

	fraudBefore := windowEnd
	if now.Before(windowEnd) {
		fraudBefore = now
	}
	hasFraud, err := j.outcomeRepo.HasFraudReportBetween(ctx, p.Target, p.QueriedAt, fraudBefore)
	if err != nil {
		return err
	}

	txEnd := windowEnd
	if now.Before(windowEnd) {
		txEnd = now
	}
	txCount, err := j.transferRepo.CountSubsequentTransfers(ctx, p.Requester, p.Target, p.QueriedAt, txEnd)
	if err != nil {
		return err
	}

	var label models.OutcomeLabel
	switch {
	case hasFraud:
		label = models.OutcomeFraudReport
	case txCount == 1:
		label = models.OutcomeSuccessfulTx
	case txCount > 1:
		label = models.OutcomeMultipleSuccessfulTx
	case now.After(windowEnd):
		label = models.OutcomeNoActivity
	default:
		// Still inside the 30-day observation window with no signal yet;
		// leave unresolved for a later pass.
		return nil
	}

	dims := j.dimensionSnapshot(ctx, p.Target)

	return j.outcomeRepo.InsertOutcome(ctx, &models.ScoreOutcome{
		Wallet:     p.Target,
		Requester:  p.Requester,
		Label:      label,
		Dimensions: dims,
		QueriedAt:  p.QueriedAt,
		ResolvedAt: now,
	})
}

// dimensionSnapshot uses the target's current dimension scores as a proxy
// for "scores at query time" — the store only keeps the latest Score row,
// not a per-query historical snapshot (spec §3 schema; documented in
// DESIGN.md).
func (j *OutcomeMatcher) dimensionSnapshot(ctx context.Context, wallet string) models.DimensionSnapshot {
	s, err := j.scoreRepo.GetByWallet(ctx, wallet)
	if err != nil || s == nil {
		return models.DimensionSnapshot{}
	}
	rel, via, ident, capb, beh := s.Reliability, s.Viability, s.Identity, s.Capability, s.Behavior
	return models.DimensionSnapshot{
		Reliability: &rel, Viability: &via, Identity: &ident, Capability: &capb, Behavior: &beh,
	}
}
