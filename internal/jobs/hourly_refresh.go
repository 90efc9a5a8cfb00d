package jobs

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/walletscore/reputation-engine/internal/chain"
	"github.com/walletscore/reputation-engine/internal/models"
	"github.com/walletscore/reputation-engine/internal/repositories"
	"github.com/walletscore/reputation-engine/internal/scoring"
)

const hourlyRefreshBatch = 50

// HourlyRefresh recomputes wallet_metrics and forces a rescore for expired
// wallets (spec §4.10).
type HourlyRefresh struct {
	scoreRepo    *repositories.ScoreRepository
	walletRepo   *repositories.WalletRepository
	transferRepo *repositories.TransferRepository
	reader       *chain.Reader
	orchestrator *scoring.Orchestrator
	usdcAddress  string
	interDelay   time.Duration
}

func NewHourlyRefresh(
	scoreRepo *repositories.ScoreRepository,
	walletRepo *repositories.WalletRepository,
	transferRepo *repositories.TransferRepository,
	reader *chain.Reader,
	orchestrator *scoring.Orchestrator,
	usdcAddress string,
	interDelay time.Duration,
) *HourlyRefresh {
	return &HourlyRefresh{
		scoreRepo:    scoreRepo,
		walletRepo:   walletRepo,
		transferRepo: transferRepo,
		reader:       reader,
		orchestrator: orchestrator,
		usdcAddress:  usdcAddress,
		interDelay:   interDelay,
	}
}

func (j *HourlyRefresh) Name() string { return "hourly_refresh" }

func (j *HourlyRefresh) Run(ctx context.Context) error {
	now := time.Now().UTC()

	wallets, err := j.scoreRepo.ListExpired(ctx, now, hourlyRefreshBatch)
	if err != nil {
		return err
	}

	scoreSum := 0.0
	refreshed := 0

	for i, wallet := range wallets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := j.refreshOne(ctx, wallet, now); err != nil {
			continue
		}
		refreshed++

		if s, err := j.scoreRepo.GetByWallet(ctx, wallet); err == nil && s != nil {
			scoreSum += float64(s.Composite)
		}

		if i < len(wallets)-1 {
			time.Sleep(j.interDelay)
		}
	}

	avgScore := 0.0
	if refreshed > 0 {
		avgScore = scoreSum / float64(refreshed)
	}
	return j.walletRepo.InsertEconomyMetrics(ctx, now, refreshed, avgScore)
}

func (j *HourlyRefresh) refreshOne(ctx context.Context, wallet string, now time.Time) error {
	addr := common.HexToAddress(wallet)
	usdc := common.HexToAddress(j.usdcAddress)

	balance, err := j.reader.Balance(ctx, usdc, addr)
	if err != nil {
		return err
	}
	usdcBalance := weiToUSDC6(balance)

	ethBal, err := j.reader.EthBalance(ctx, addr)
	if err != nil {
		return err
	}
	ethBalance, _ := weiToEth(ethBal)

	if err := j.walletRepo.InsertSnapshot(ctx, &models.WalletSnapshot{
		Wallet: wallet, TakenAt: now, USDCBalance: usdcBalance, EthBalance: ethBalance,
	}); err != nil {
		return err
	}

	metrics, err := j.recomputeMetrics(ctx, wallet, usdcBalance, now)
	if err != nil {
		return err
	}
	if err := j.walletRepo.UpsertMetrics(ctx, metrics); err != nil {
		return err
	}

	_, err = j.orchestrator.ComputeOrGetScore(ctx, wallet, scoring.Options{ForceRefresh: true})
	return err
}

func (j *HourlyRefresh) recomputeMetrics(ctx context.Context, wallet string, currentBalance float64, now time.Time) (*models.WalletMetrics, error) {
	tx24h, vol24h, err := j.transferRepo.WindowStats(ctx, wallet, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	tx7d, vol7d, err := j.transferRepo.WindowStats(ctx, wallet, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	tx30d, vol30d, err := j.transferRepo.WindowStats(ctx, wallet, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, err
	}
	partners, err := j.transferRepo.DistinctPartners(ctx, wallet, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, err
	}

	trend := "stable"
	priorSnap, err := j.walletRepo.SnapshotAt(ctx, wallet, now.Add(-7*24*time.Hour))
	if err == nil && priorSnap != nil && priorSnap.USDCBalance > 0 {
		ratio := currentBalance / priorSnap.USDCBalance
		switch {
		case ratio < 0.5:
			trend = "freefall"
		case ratio < 0.9:
			trend = "declining"
		case ratio > 1.1:
			trend = "rising"
		}
	}

	return &models.WalletMetrics{
		Wallet:     wallet,
		TxCount24h: tx24h, TxCount7d: tx7d, TxCount30d: tx30d,
		Volume24h: vol24h, Volume7d: vol7d, Volume30d: vol30d,
		Partners:   partners,
		TrendBin:   trend,
		ComputedAt: now,
	}, nil
}
