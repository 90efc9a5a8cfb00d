package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TransferRepository reads RawTransfers, written exclusively by the
// external chain indexer (spec §3 ownership). The core only ever reads
// this table.
type TransferRepository struct {
	db *Database
}

func NewTransferRepository(db *Database) *TransferRepository {
	return &TransferRepository{db: db}
}

// CountRecentQueries returns how many QueryLog rows exist for `wallet` as a
// target within the given window, feeding Confidence's prior-query-count
// signal and the Gaming Detector's deposit_and_score rule.
func (r *TransferRepository) CountRecentQueries(ctx context.Context, wallet string, since time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM query_log WHERE target = $1 AND timestamp >= $2
	`, wallet, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent queries: %w", err)
	}
	return count, nil
}

// LastQueryAgo returns how long ago the most recent query for `wallet`
// happened, or nil if there is none.
func (r *TransferRepository) LastQueryAgo(ctx context.Context, wallet string, now time.Time) (*time.Duration, error) {
	var ts time.Time
	err := r.db.Pool.QueryRow(ctx, `
		SELECT timestamp FROM query_log WHERE target = $1 ORDER BY timestamp DESC LIMIT 1
	`, wallet).Scan(&ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last query: %w", err)
	}
	d := now.Sub(ts)
	return &d, nil
}

// CountSubsequentTransfers counts RawTransfers between requester and target,
// in either direction, after `after` and at or before `before` — used by
// OutcomeMatcher to decide successful_tx / multiple_successful_tx (spec §4.10).
func (r *TransferRepository) CountSubsequentTransfers(ctx context.Context, requester, target string, after, before time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM raw_transfers
		WHERE timestamp > $1 AND timestamp <= $2
		AND ((LOWER(from_address) = LOWER($3) AND LOWER(to_address) = LOWER($4))
		  OR (LOWER(from_address) = LOWER($4) AND LOWER(to_address) = LOWER($3)))
	`, after, before, requester, target).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subsequent transfers: %w", err)
	}
	return count, nil
}

// EarliestInboundSender returns the sender of the first transfer ever
// received by wallet, used by the Sybil Detector's funded_by_top_partner
// rule. Returns "" if wallet has no inbound transfers.
func (r *TransferRepository) EarliestInboundSender(ctx context.Context, wallet string) (string, error) {
	var sender string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT from_address FROM raw_transfers
		WHERE LOWER(to_address) = LOWER($1)
		ORDER BY timestamp ASC LIMIT 1
	`, wallet).Scan(&sender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get earliest inbound sender: %w", err)
	}
	return sender, nil
}

// WindowStats returns the transfer count and total volume (in+out) for
// wallet at or after `since`, for HourlyRefresh's wallet_metrics
// recomputation (spec §4.10).
func (r *TransferRepository) WindowStats(ctx context.Context, wallet string, since time.Time) (txCount int64, volume float64, err error) {
	err = r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM raw_transfers
		WHERE timestamp >= $1 AND (LOWER(from_address) = LOWER($2) OR LOWER(to_address) = LOWER($2))
	`, since, wallet).Scan(&txCount, &volume)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute window stats: %w", err)
	}
	return txCount, volume, nil
}

// DistinctPartners counts unique counterparties wallet transacted with
// since `since`, for HourlyRefresh's wallet_metrics.partners column.
func (r *TransferRepository) DistinctPartners(ctx context.Context, wallet string, since time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT CASE WHEN LOWER(from_address) = LOWER($2) THEN LOWER(to_address) ELSE LOWER(from_address) END)
		FROM raw_transfers
		WHERE timestamp >= $1 AND (LOWER(from_address) = LOWER($2) OR LOWER(to_address) = LOWER($2))
	`, since, wallet).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct partners: %w", err)
	}
	return count, nil
}

// InsertQueryLog records one paid/free request (spec §3).
func (r *TransferRepository) InsertQueryLog(ctx context.Context, requester, target, endpoint string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO query_log (requester, target, endpoint, timestamp) VALUES ($1,$2,$3,$4)
	`, requester, target, endpoint, at)
	if err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}
	return nil
}
