package adaptive

import (
	"encoding/json"
	"math"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/dimensions"
	"github.com/walletscore/reputation-engine/internal/models"
)

// EncodeBreakpoints converts adapted curves into the JSONB blob persisted
// on AdaptiveState.Breakpoints.
func EncodeBreakpoints(curves map[string][]dimensions.Breakpoint) models.JSONB {
	raw, err := json.Marshal(curves)
	if err != nil {
		return nil
	}
	var out models.JSONB
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// DecodeBreakpoints reverses EncodeBreakpoints. Returns ok=false on any
// malformed or empty blob so the caller falls back to static defaults.
func DecodeBreakpoints(blob models.JSONB) (map[string][]dimensions.Breakpoint, bool) {
	if len(blob) == 0 {
		return nil, false
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, false
	}
	var out map[string][]dimensions.Breakpoint
	if err := json.Unmarshal(raw, &out); err != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}

// PopulationStats summarizes the scored-wallet population for breakpoint
// maturity adaptation (spec §4.5).
type PopulationStats struct {
	MedianComposite float64
}

// AdaptBreakpoints shifts every named curve's nonzero X values by a
// maturity factor derived from the population's median composite score
// (spec §4.5). Y values never change; zero anchors stay at zero.
func AdaptBreakpoints(curves map[string][]dimensions.Breakpoint, stats PopulationStats, cfg configs.AdaptiveConfig) map[string][]dimensions.Breakpoint {
	f := maturityFactor(stats.MedianComposite, cfg)

	adapted := make(map[string][]dimensions.Breakpoint, len(curves))
	for name, pts := range curves {
		out := make([]dimensions.Breakpoint, len(pts))
		for i, p := range pts {
			x := p.X
			if x != 0 {
				x = math.Round(x*(1+f*cfg.MaxShiftRatio)*100) / 100
			}
			out[i] = dimensions.Breakpoint{X: x, Y: p.Y}
		}
		adapted[name] = out
	}
	return adapted
}

func maturityFactor(median float64, cfg configs.AdaptiveConfig) float64 {
	ceiling := cfg.MaturityCeiling
	baseline := cfg.MaturityBaseline
	if ceiling <= baseline {
		return 0
	}
	f := (median - baseline) / (ceiling - baseline)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
