package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/walletscore/reputation-engine/internal/repositories"
)

const anomalySweepWindow = 15 * time.Minute

// Anomaly is one detected condition for one wallet (spec §4.10).
type Anomaly struct {
	Wallet string
	Kind   string // score_jump, new_fraud_report, balance_freefall, newly_sybil_flagged
	Detail string
}

// AnomalyDetector scans recently scored wallets for the four conditions
// spec §4.10 names. It tracks each wallet's last-seen sybil flag
// in-process to detect transitions, since Score only keeps the current
// flag, not its history (spec §9 "global mutable caches" — kept narrow
// and owned by this job, not shared).
type AnomalyDetector struct {
	scoreRepo    *repositories.ScoreRepository
	outcomeRepo  *repositories.OutcomeRepository
	walletRepo   *repositories.WalletRepository

	mu            sync.Mutex
	sybilFlagged  map[string]bool
	lastSweep     time.Time
}

func NewAnomalyDetector(
	scoreRepo *repositories.ScoreRepository,
	outcomeRepo *repositories.OutcomeRepository,
	walletRepo *repositories.WalletRepository,
) *AnomalyDetector {
	return &AnomalyDetector{
		scoreRepo:    scoreRepo,
		outcomeRepo:  outcomeRepo,
		walletRepo:   walletRepo,
		sybilFlagged: make(map[string]bool),
	}
}

func (j *AnomalyDetector) Name() string { return "anomaly_detector" }

func (j *AnomalyDetector) Run(ctx context.Context) error {
	now := time.Now().UTC()

	j.mu.Lock()
	since := j.lastSweep
	j.mu.Unlock()
	if since.IsZero() {
		since = now.Add(-anomalySweepWindow)
	}

	wallets, err := j.scoreRepo.RecentlyScored(ctx, since)
	if err != nil {
		return err
	}

	reportedFraud, err := j.outcomeRepo.NewFraudReportsSince(ctx, since)
	if err != nil {
		return err
	}
	freshFraud := make(map[string]bool, len(reportedFraud))
	for _, w := range reportedFraud {
		freshFraud[w] = true
	}

	var anomalies []Anomaly
	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		anomalies = append(anomalies, j.checkWallet(ctx, wallet, now, freshFraud)...)
	}

	for _, a := range anomalies {
		log.Warn().Str("wallet", a.Wallet).Str("kind", a.Kind).Str("detail", a.Detail).Msg("jobs: anomaly detected")
	}

	j.mu.Lock()
	j.lastSweep = now
	j.mu.Unlock()
	return nil
}

func (j *AnomalyDetector) checkWallet(ctx context.Context, wallet string, now time.Time, freshFraud map[string]bool) []Anomaly {
	var found []Anomaly

	score, err := j.scoreRepo.GetByWallet(ctx, wallet)
	if err != nil || score == nil {
		return found
	}

	history, err := j.scoreRepo.GetHistory(ctx, wallet, 2)
	if err == nil && len(history) == 2 {
		delta := history[1].Score - history[0].Score
		if delta > 10 || delta < -10 {
			found = append(found, Anomaly{Wallet: wallet, Kind: "score_jump", Detail: scoreJumpDetail(delta)})
		}
	}

	if freshFraud[wallet] {
		found = append(found, Anomaly{Wallet: wallet, Kind: "new_fraud_report"})
	}

	latest, err := j.walletRepo.SnapshotAt(ctx, wallet, now)
	if err == nil && latest != nil {
		prior, err := j.walletRepo.SnapshotAt(ctx, wallet, latest.TakenAt.Add(-time.Second))
		if err == nil && prior != nil && prior.USDCBalance > 0 && latest.USDCBalance < 0.5*prior.USDCBalance {
			found = append(found, Anomaly{Wallet: wallet, Kind: "balance_freefall"})
		}
	}

	j.mu.Lock()
	wasFlagged := j.sybilFlagged[wallet]
	j.sybilFlagged[wallet] = score.SybilFlag
	j.mu.Unlock()
	if score.SybilFlag && !wasFlagged {
		found = append(found, Anomaly{Wallet: wallet, Kind: "newly_sybil_flagged"})
	}

	return found
}

func scoreJumpDetail(delta int) string {
	return fmt.Sprintf("%+d", delta)
}
