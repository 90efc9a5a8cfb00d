package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/walletscore/reputation-engine/internal/models"
)

// ScoreRepository persists Score and ScoreHistory rows. Per spec §3 the
// Orchestrator is the exclusive writer of both tables; writes that touch
// both run inside a single transaction (spec §5).
type ScoreRepository struct {
	db *Database
}

func NewScoreRepository(db *Database) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// UpsertWithHistory writes the Score row (insert-or-replace keyed by
// wallet) and appends one ScoreHistory row, atomically.
func (r *ScoreRepository) UpsertWithHistory(ctx context.Context, s *models.Score) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		raw, err := s.RawSnapshot.Value()
		if err != nil {
			return fmt.Errorf("failed to marshal raw snapshot: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO scores (
				wallet, composite, reliability, viability, identity, capability, behavior,
				tier, confidence, recommendation, model_version, sybil_flag,
				sybil_indicators, gaming_indicators, integrity_multiplier,
				raw_snapshot, calculated_at, expires_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			ON CONFLICT (wallet) DO UPDATE SET
				composite = EXCLUDED.composite,
				reliability = EXCLUDED.reliability,
				viability = EXCLUDED.viability,
				identity = EXCLUDED.identity,
				capability = EXCLUDED.capability,
				behavior = EXCLUDED.behavior,
				tier = EXCLUDED.tier,
				confidence = EXCLUDED.confidence,
				recommendation = EXCLUDED.recommendation,
				model_version = EXCLUDED.model_version,
				sybil_flag = EXCLUDED.sybil_flag,
				sybil_indicators = EXCLUDED.sybil_indicators,
				gaming_indicators = EXCLUDED.gaming_indicators,
				integrity_multiplier = EXCLUDED.integrity_multiplier,
				raw_snapshot = EXCLUDED.raw_snapshot,
				calculated_at = EXCLUDED.calculated_at,
				expires_at = EXCLUDED.expires_at
		`,
			s.Wallet, s.Composite, s.Reliability, s.Viability, s.Identity, s.Capability, s.Behavior,
			string(s.Tier), s.Confidence, string(s.Recommendation), s.ModelVersion, s.SybilFlag,
			pq.Array(s.SybilIndicators), pq.Array(s.GamingIndicators), s.IntegrityMultiplier,
			raw, s.CalculatedAt, s.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert score: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO score_history (wallet, score, confidence, model_version, calculated_at)
			VALUES ($1,$2,$3,$4,$5)
		`, s.Wallet, s.Composite, s.Confidence, s.ModelVersion, s.CalculatedAt)
		if err != nil {
			return fmt.Errorf("failed to append score history: %w", err)
		}

		return nil
	})
}

// GetByWallet returns the current Score row, or nil if none exists.
func (r *ScoreRepository) GetByWallet(ctx context.Context, wallet string) (*models.Score, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT wallet, composite, reliability, viability, identity, capability, behavior,
			tier, confidence, recommendation, model_version, sybil_flag,
			sybil_indicators, gaming_indicators, integrity_multiplier,
			raw_snapshot, calculated_at, expires_at
		FROM scores WHERE wallet = $1
	`, wallet)

	s := &models.Score{}
	var tier, recommendation string
	var sybilIndicators, gamingIndicators []string
	var raw []byte

	err := row.Scan(
		&s.Wallet, &s.Composite, &s.Reliability, &s.Viability, &s.Identity, &s.Capability, &s.Behavior,
		&tier, &s.Confidence, &recommendation, &s.ModelVersion, &s.SybilFlag,
		pq.Array(&sybilIndicators), pq.Array(&gamingIndicators), &s.IntegrityMultiplier,
		&raw, &s.CalculatedAt, &s.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	s.Tier = models.Tier(tier)
	s.Recommendation = models.Recommendation(recommendation)
	s.SybilIndicators = sybilIndicators
	s.GamingIndicators = gamingIndicators
	if raw != nil {
		_ = s.RawSnapshot.Scan(raw)
	}

	return s, nil
}

// GetHistory returns the most recent `limit` history rows for a wallet,
// ordered oldest-first (the order Trajectory consumes — spec §4.9).
func (r *ScoreRepository) GetHistory(ctx context.Context, wallet string, limit int) ([]models.ScoreHistory, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, wallet, score, confidence, model_version, calculated_at
		FROM (
			SELECT id, wallet, score, confidence, model_version, calculated_at
			FROM score_history WHERE wallet = $1
			ORDER BY calculated_at DESC
			LIMIT $2
		) recent
		ORDER BY calculated_at ASC
	`, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var history []models.ScoreHistory
	for rows.Next() {
		var h models.ScoreHistory
		if err := rows.Scan(&h.ID, &h.Wallet, &h.Score, &h.Confidence, &h.ModelVersion, &h.CalculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ListExpired returns up to `batch` wallets whose Score has expired, for
// HourlyRefresh (spec §4.10).
func (r *ScoreRepository) ListExpired(ctx context.Context, now time.Time, batch int) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT wallet FROM scores WHERE expires_at <= $1 ORDER BY expires_at ASC LIMIT $2
	`, now, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired scores: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan expired wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// RecentlyScored returns wallets whose Score was (re)calculated at or
// after `since`, for AnomalyDetector's 15-minute sweep (spec §4.10).
func (r *ScoreRepository) RecentlyScored(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT wallet FROM scores WHERE calculated_at >= $1 ORDER BY calculated_at ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently scored wallets: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan recently scored wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}
