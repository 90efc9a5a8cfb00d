// Package dimensions computes the five reputation sub-scores (Reliability,
// Viability, Identity, Capability, Behavior) from a point-in-time wallet
// facts snapshot (spec §4.4).
package dimensions

import "sort"

// Breakpoint is one (input, output) pair of a piecewise-linear curve.
type Breakpoint struct {
	X float64
	Y float64
}

// Interpolate maps x through a piecewise-linear curve defined by points,
// clamping at the ends. Interpolate sorts a copy of points ascending by X
// first, so curves decoded from persisted adaptive state (spec §4.5) need
// not arrive sorted.
func Interpolate(points []Breakpoint, x float64) float64 {
	if len(points) == 0 {
		return 0
	}
	pts := make([]Breakpoint, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	if x <= pts[0].X {
		return pts[0].Y
	}
	last := pts[len(pts)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		if x >= a.X && x <= b.X {
			if b.X == a.X {
				return a.Y
			}
			t := (x - a.X) / (b.X - a.X)
			return a.Y + t*(b.Y-a.Y)
		}
	}
	return last.Y
}

// Stepped returns the output of the highest threshold whose X is <= x
// (spec's "stepped by {...}" breakpoint tables, as opposed to the linearly
// interpolated "breakpoints" tables). thresholds must be sorted descending
// by X so the first match wins.
func Stepped(thresholds []Breakpoint, x float64) float64 {
	for _, t := range thresholds {
		if x >= t.X {
			return t.Y
		}
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
