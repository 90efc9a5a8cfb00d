// Package trajectory computes velocity, momentum, direction, volatility,
// and the trajectory modifier applied to a composite score (spec §4.9),
// grounded on aristath-sentinel's gonum-backed stats wrappers.
package trajectory

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/walletscore/reputation-engine/internal/models"
)

// Direction classifies the overall shape of a wallet's score history.
type Direction string

const (
	DirectionNew       Direction = "new"
	DirectionImproving Direction = "improving"
	DirectionDeclining Direction = "declining"
	DirectionStable    Direction = "stable"
	DirectionVolatile  Direction = "volatile"
)

// Result is the logical Trajectory shape (spec §6).
type Result struct {
	Velocity   *float64
	Momentum   *float64
	Direction  Direction
	Volatility float64
	Modifier   int
	DataPoints int
	SpanDays   float64
}

const volatilityThreshold = 15.0

// Compute derives a Result from ordered (oldest-first) score history (spec
// §4.9, §8: velocity null if <2 points, momentum null if <6 points).
func Compute(history []models.ScoreHistory, now time.Time) Result {
	n := len(history)
	result := Result{DataPoints: n}

	if n == 0 {
		result.Direction = DirectionNew
		return result
	}

	spanDays := 0.0
	if n >= 2 {
		spanDays = history[n-1].CalculatedAt.Sub(history[0].CalculatedAt).Hours() / 24
	}
	result.SpanDays = spanDays

	scores := make([]float64, n)
	days := make([]float64, n)
	base := history[0].CalculatedAt
	for i, h := range history {
		scores[i] = float64(h.Score)
		days[i] = h.CalculatedAt.Sub(base).Hours() / 24
	}

	if n >= 2 {
		v := olsSlope(days, scores)
		result.Velocity = &v
	}

	if n >= 6 {
		mid := n / 2
		firstHalfSlope := olsSlope(days[:mid], scores[:mid])
		secondHalfSlope := olsSlope(days[mid:], scores[mid:])
		m := secondHalfSlope - firstHalfSlope
		result.Momentum = &m
	}

	mean := stat.Mean(scores, nil)
	sumSq := 0.0
	for _, s := range scores {
		sumSq += (s - mean) * (s - mean)
	}
	result.Volatility = math.Sqrt(sumSq / float64(n))

	streakUp, streakDown := streaks(scores)
	result.Modifier = modifier(streakUp, streakDown, result.Velocity, result.Volatility, n)
	result.Direction = direction(result)

	return result
}

func olsSlope(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(x, y, nil, false)
	return slope
}

const scoreCeiling = 100.0
const scoreFloor = 0.0

// streaks returns the longest trailing run of consecutive rises and the
// longest trailing run of consecutive declines, counted from the end of
// the series (most recent points first). A run of equal values sitting at
// the composite's ceiling (100) or floor (0) is a clamping artifact, not a
// plateau in the underlying trend — spec §8 scenario 2's "50,52,…,148
// capped at 100" series spends its last several points pinned at the
// ceiling after a genuine 10+ point rise, and that rise must still count.
// Such a run is skipped rather than treated as breaking the streak; an
// equal run away from either bound still ends the streak as a real
// plateau.
func streaks(scores []float64) (up, down int) {
	for i := len(scores) - 1; i > 0; i-- {
		switch {
		case scores[i] > scores[i-1]:
			if down > 0 {
				return up, down
			}
			up++
		case scores[i] < scores[i-1]:
			if up > 0 {
				return up, down
			}
			down++
		default:
			if scores[i] == scoreCeiling || scores[i] == scoreFloor {
				continue
			}
			return up, down
		}
	}
	return up, down
}

// modifier implements spec §4.9's first-match-wins table.
func modifier(streakUp, streakDown int, velocity *float64, volatility float64, n int) int {
	v := 0.0
	if velocity != nil {
		v = *velocity
	}

	switch {
	case streakUp >= 10 && v > 1.0:
		return 5
	case streakDown >= 10 && v < -1.0:
		return -5
	case streakUp >= 5 || v > 0.5:
		return 3
	case streakDown >= 5 || v < -0.5:
		return -3
	case volatility >= 15:
		return 0
	case n >= 5 && volatility < volatilityThreshold:
		return 1
	default:
		return 0
	}
}

func direction(r Result) Direction {
	if r.DataPoints < 2 {
		return DirectionNew
	}
	if r.Velocity != nil {
		switch {
		case *r.Velocity > 0.5:
			return DirectionImproving
		case *r.Velocity < -0.5:
			return DirectionDeclining
		}
	}
	if r.Volatility >= volatilityThreshold {
		return DirectionVolatile
	}
	return DirectionStable
}
