package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/walletscore/reputation-engine/internal/models"
)

const adaptiveStateName = "default"

// AdaptiveRepository persists AdaptiveState (spec §3). The teacher's
// ab_testing.go left SaveToDB/LoadFromDB as TODO placeholders; this repo
// implements the real thing against a dedicated table.
type AdaptiveRepository struct {
	db *Database
}

func NewAdaptiveRepository(db *Database) *AdaptiveRepository {
	return &AdaptiveRepository{db: db}
}

func (r *AdaptiveRepository) Load(ctx context.Context) (*models.AdaptiveState, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT name, weights, breakpoints, sample_size, updated_at
		FROM adaptive_state WHERE name = $1
	`, adaptiveStateName)

	var (
		state          models.AdaptiveState
		weightsRaw     []byte
		breakpointsRaw []byte
	)
	err := row.Scan(&state.Name, &weightsRaw, &breakpointsRaw, &state.SampleSize, &state.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load adaptive state: %w", err)
	}

	if err := json.Unmarshal(weightsRaw, &state.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal adaptive weights: %w", err)
	}
	if len(breakpointsRaw) > 0 {
		if err := json.Unmarshal(breakpointsRaw, &state.Breakpoints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal adaptive breakpoints: %w", err)
		}
	}

	return &state, nil
}

func (r *AdaptiveRepository) Save(ctx context.Context, state *models.AdaptiveState) error {
	weightsRaw, err := json.Marshal(state.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal adaptive weights: %w", err)
	}
	breakpointsRaw, err := json.Marshal(state.Breakpoints)
	if err != nil {
		return fmt.Errorf("failed to marshal adaptive breakpoints: %w", err)
	}

	now := state.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO adaptive_state (name, weights, breakpoints, sample_size, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET
			weights = EXCLUDED.weights,
			breakpoints = EXCLUDED.breakpoints,
			sample_size = EXCLUDED.sample_size,
			updated_at = EXCLUDED.updated_at
	`, adaptiveStateName, weightsRaw, breakpointsRaw, state.SampleSize, now)
	if err != nil {
		return fmt.Errorf("failed to save adaptive state: %w", err)
	}
	return nil
}
