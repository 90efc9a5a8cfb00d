package dimensions

// Named breakpoint curves that the Adaptive layer is allowed to shift
// (spec §4.5 "Adapt(populationStats) -> adaptedBreakpoints"). Only the two
// curves spec.md explicitly calls "breakpoints" (as opposed to "stepped")
// are adaptive; stepped tables are fixed thresholds, not interpolated
// curves, and are left alone.
const (
	CurveReliabilityTxCount = "reliability_tx_count"
	CurveViabilityWalletAge = "viability_wallet_age"
)

// DefaultCurves returns the static breakpoint tables from spec §4.4,
// keyed by name so Adaptive can look each one up and shift its X axis.
func DefaultCurves() map[string][]Breakpoint {
	return map[string][]Breakpoint{
		CurveReliabilityTxCount: {
			{X: 0, Y: 0}, {X: 10, Y: 5}, {X: 100, Y: 15}, {X: 1000, Y: 25},
		},
		CurveViabilityWalletAge: {
			{X: 1, Y: 5}, {X: 7, Y: 15}, {X: 30, Y: 25}, {X: 90, Y: 30},
		},
	}
}

// CurveSet is the resolved set of adaptive curves a scoring pass uses,
// falling back to DefaultCurves for any name AdaptiveState doesn't carry.
type CurveSet struct {
	curves map[string][]Breakpoint
}

func NewCurveSet(overrides map[string][]Breakpoint) CurveSet {
	cs := CurveSet{curves: DefaultCurves()}
	for name, pts := range overrides {
		cs.curves[name] = pts
	}
	return cs
}

func (cs CurveSet) Get(name string) []Breakpoint {
	return cs.curves[name]
}
