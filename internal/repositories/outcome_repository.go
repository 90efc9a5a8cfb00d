package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/walletscore/reputation-engine/internal/models"
)

// OutcomeRepository persists ScoreOutcomes and reads the FraudReports table
// populated by an external (out-of-scope) reporting surface.
type OutcomeRepository struct {
	db *Database
}

func NewOutcomeRepository(db *Database) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// PendingQueries returns query_log rows at or after `since` lacking an
// outcome row, oldest first, for OutcomeMatcher (spec §4.10). Rows are not
// filtered by endpoint, so free lookups are returned alongside paid ones.
type PendingQuery struct {
	Requester string
	Target    string
	QueriedAt time.Time
}

func (r *OutcomeRepository) PendingQueries(ctx context.Context, since time.Time, limit int) ([]PendingQuery, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT q.requester, q.target, q.timestamp
		FROM query_log q
		LEFT JOIN score_outcomes o
			ON o.wallet = q.target AND o.requester = q.requester AND o.queried_at = q.timestamp
		WHERE q.timestamp >= $1 AND o.id IS NULL
		ORDER BY q.timestamp ASC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending queries: %w", err)
	}
	defer rows.Close()

	var pending []PendingQuery
	for rows.Next() {
		var p PendingQuery
		if err := rows.Scan(&p.Requester, &p.Target, &p.QueriedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending query: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// InsertOutcome writes one ScoreOutcome row. Called with ON CONFLICT DO
// NOTHING keyed on (wallet, requester, queried_at) so a second
// OutcomeMatcher pass over the same store is idempotent (spec §8).
func (r *OutcomeRepository) InsertOutcome(ctx context.Context, o *models.ScoreOutcome) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO score_outcomes (wallet, requester, label, reliability, viability, identity, capability, behavior, queried_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (wallet, requester, queried_at) DO NOTHING
	`, o.Wallet, o.Requester, string(o.Label),
		o.Dimensions.Reliability, o.Dimensions.Viability, o.Dimensions.Identity,
		o.Dimensions.Capability, o.Dimensions.Behavior, o.QueriedAt, o.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to insert score outcome: %w", err)
	}
	return nil
}

// CountResolvedOutcomes returns how many resolved ScoreOutcome rows name
// wallet as the target, feeding Confidence's rating-count proxy signal
// (spec §4.7).
func (r *OutcomeRepository) CountResolvedOutcomes(ctx context.Context, wallet string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM score_outcomes WHERE LOWER(wallet) = LOWER($1)
	`, wallet).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count resolved outcomes: %w", err)
	}
	return count, nil
}

// LabeledOutcomes returns every outcome row with a non-null dimension
// snapshot, for Adaptive Weights' mean_pos/mean_neg computation (spec §4.5).
func (r *OutcomeRepository) LabeledOutcomes(ctx context.Context) ([]models.ScoreOutcome, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT wallet, requester, label, reliability, viability, identity, capability, behavior, queried_at, resolved_at
		FROM score_outcomes
		WHERE reliability IS NOT NULL AND viability IS NOT NULL AND identity IS NOT NULL
		  AND capability IS NOT NULL AND behavior IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list labeled outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.ScoreOutcome
	for rows.Next() {
		var o models.ScoreOutcome
		var label string
		if err := rows.Scan(&o.Wallet, &o.Requester, &label,
			&o.Dimensions.Reliability, &o.Dimensions.Viability, &o.Dimensions.Identity,
			&o.Dimensions.Capability, &o.Dimensions.Behavior, &o.QueriedAt, &o.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan labeled outcome: %w", err)
		}
		o.Label = models.OutcomeLabel(label)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// CountFraudReports returns how many fraud reports exist against `wallet`
// at or before `at`, feeding the Integrity Multiplier's fraudReportCount
// input (spec §4.6). fraud_reports is populated by an external (out of
// scope) reporting surface; the core only reads it.
func (r *OutcomeRepository) CountFraudReports(ctx context.Context, wallet string, at time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM fraud_reports WHERE LOWER(wallet) = LOWER($1) AND reported_at <= $2
	`, wallet, at).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fraud reports: %w", err)
	}
	return count, nil
}

// HasFraudReportBetween reports whether a fraud report against target was
// filed in (after, before] — used by OutcomeMatcher (fraud overrides
// transactions) and AnomalyDetector ("new fraud reports").
func (r *OutcomeRepository) HasFraudReportBetween(ctx context.Context, target string, after, before time.Time) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM fraud_reports WHERE LOWER(wallet) = LOWER($1) AND reported_at > $2 AND reported_at <= $3)
	`, target, after, before).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fraud report window: %w", err)
	}
	return exists, nil
}

// NewFraudReportsSince returns wallets newly reported since `since`, for
// AnomalyDetector (spec §4.10).
func (r *OutcomeRepository) NewFraudReportsSince(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT wallet FROM fraud_reports WHERE reported_at > $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list new fraud reports: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan fraud report wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}
