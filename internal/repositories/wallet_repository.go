package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/walletscore/reputation-engine/internal/models"
)

// WalletRepository reads the tables the external chain indexer exclusively
// populates (WalletIndex, RelationshipGraph) and owns the WalletSnapshots /
// WalletMetrics tables that the Job Runner's HourlyRefresh writes (spec §3,
// resolved Open Question (b) — see DESIGN.md).
type WalletRepository struct {
	db *Database
}

func NewWalletRepository(db *Database) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetIndex(ctx context.Context, wallet string) (*models.WalletIndex, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT wallet, first_seen, last_seen, total_tx_count, total_volume_in, total_volume_out, unique_partners
		FROM wallet_index WHERE wallet = $1
	`, wallet)

	var idx models.WalletIndex
	err := row.Scan(&idx.Wallet, &idx.FirstSeen, &idx.LastSeen, &idx.TotalTxCount,
		&idx.TotalVolumeIn, &idx.TotalVolumeOut, &idx.UniquePartners)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet index: %w", err)
	}
	return &idx, nil
}

// canonicalPair orders two addresses so (a,b) == (b,a) resolves to one row
// (spec §9 "cyclic pair graph").
func canonicalPair(a, b string) (string, string) {
	if strings.ToLower(a) <= strings.ToLower(b) {
		return a, b
	}
	return b, a
}

// GetPartners returns every relationship row touching wallet, unioning both
// directions of the canonical pair.
func (r *WalletRepository) GetPartners(ctx context.Context, wallet string) ([]models.PartnerVolume, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT wallet_a, wallet_b, volume_a_to_b, volume_b_to_a, first_interaction
		FROM relationship_graph
		WHERE wallet_a = $1 OR wallet_b = $1
	`, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer rows.Close()

	var partners []models.PartnerVolume
	for rows.Next() {
		var a, b string
		var volAB, volBA float64
		var firstInteract time.Time
		if err := rows.Scan(&a, &b, &volAB, &volBA, &firstInteract); err != nil {
			return nil, fmt.Errorf("failed to scan partner row: %w", err)
		}

		if strings.EqualFold(a, wallet) {
			partners = append(partners, models.PartnerVolume{
				Wallet: b, VolumeAToB: volAB, VolumeBToA: volBA, FirstSeen: firstInteract,
			})
		} else {
			// wallet is "b" in the canonical pair: flip so VolumeAToB is
			// always "this wallet -> partner".
			partners = append(partners, models.PartnerVolume{
				Wallet: a, VolumeAToB: volBA, VolumeBToA: volAB, FirstSeen: firstInteract,
			})
		}
	}
	return partners, rows.Err()
}

// HasRelationship reports whether wallets a and b have a relationship row,
// used by the Sybil Detector's tight_cluster rule.
func (r *WalletRepository) HasRelationship(ctx context.Context, a, b string) (bool, error) {
	wa, wb := canonicalPair(a, b)
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM relationship_graph WHERE wallet_a = $1 AND wallet_b = $2)
	`, wa, wb).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return exists, nil
}

// InsertSnapshot records a balance sample (HourlyRefresh, spec §4.10).
func (r *WalletRepository) InsertSnapshot(ctx context.Context, snap *models.WalletSnapshot) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO wallet_snapshots (wallet, taken_at, usdc_balance, eth_balance)
		VALUES ($1,$2,$3,$4)
	`, snap.Wallet, snap.TakenAt, snap.USDCBalance, snap.EthBalance)
	if err != nil {
		return fmt.Errorf("failed to insert wallet snapshot: %w", err)
	}
	return nil
}

// SnapshotAt returns the most recent snapshot taken at or before `at`,
// used for HourlyRefresh's trend-bin computation and AnomalyDetector's
// balance-freefall check.
func (r *WalletRepository) SnapshotAt(ctx context.Context, wallet string, at time.Time) (*models.WalletSnapshot, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT wallet, taken_at, usdc_balance, eth_balance
		FROM wallet_snapshots
		WHERE wallet = $1 AND taken_at <= $2
		ORDER BY taken_at DESC LIMIT 1
	`, wallet, at)

	var snap models.WalletSnapshot
	err := row.Scan(&snap.Wallet, &snap.TakenAt, &snap.USDCBalance, &snap.EthBalance)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet snapshot: %w", err)
	}
	return &snap, nil
}

// UpsertMetrics writes the HourlyRefresh job's recomputed wallet_metrics row.
func (r *WalletRepository) UpsertMetrics(ctx context.Context, m *models.WalletMetrics) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO wallet_metrics (wallet, tx_count_24h, tx_count_7d, tx_count_30d,
			volume_24h, volume_7d, volume_30d, partners, trend_bin, computed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (wallet) DO UPDATE SET
			tx_count_24h = EXCLUDED.tx_count_24h,
			tx_count_7d = EXCLUDED.tx_count_7d,
			tx_count_30d = EXCLUDED.tx_count_30d,
			volume_24h = EXCLUDED.volume_24h,
			volume_7d = EXCLUDED.volume_7d,
			volume_30d = EXCLUDED.volume_30d,
			partners = EXCLUDED.partners,
			trend_bin = EXCLUDED.trend_bin,
			computed_at = EXCLUDED.computed_at
	`, m.Wallet, m.TxCount24h, m.TxCount7d, m.TxCount30d, m.Volume24h, m.Volume7d, m.Volume30d,
		m.Partners, m.TrendBin, m.ComputedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet metrics: %w", err)
	}
	return nil
}

// GetMetrics returns the most recently computed wallet_metrics row, whose
// trend_bin feeds the Viability dimension's 7-day trend score (spec §4.4).
func (r *WalletRepository) GetMetrics(ctx context.Context, wallet string) (*models.WalletMetrics, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT wallet, tx_count_24h, tx_count_7d, tx_count_30d,
			volume_24h, volume_7d, volume_30d, partners, trend_bin, computed_at
		FROM wallet_metrics WHERE wallet = $1
	`, wallet)

	var m models.WalletMetrics
	err := row.Scan(&m.Wallet, &m.TxCount24h, &m.TxCount7d, &m.TxCount30d,
		&m.Volume24h, &m.Volume7d, &m.Volume30d, &m.Partners, &m.TrendBin, &m.ComputedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet metrics: %w", err)
	}
	return &m, nil
}

// InsertEconomyMetrics writes HourlyRefresh's end-of-batch aggregate row.
func (r *WalletRepository) InsertEconomyMetrics(ctx context.Context, at time.Time, walletsRefreshed int, avgScore float64) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO economy_metrics (computed_at, wallets_refreshed, avg_score)
		VALUES ($1,$2,$3)
	`, at, walletsRefreshed, avgScore)
	if err != nil {
		return fmt.Errorf("failed to insert economy metrics: %w", err)
	}
	return nil
}
