package scoring

import "time"

const (
	minTTL = 15 * time.Minute
	maxTTL = 4 * time.Hour
)

// ttlFor derives a cache TTL from confidence: higher confidence earns a
// longer TTL around the configured base, clamped to [15m, 4h] (spec §4.1
// step "expires_at is set on write to calculated_at + TTL").
func ttlFor(confidence float64, base time.Duration) time.Duration {
	factor := 0.5 + clamp01(confidence)
	ttl := time.Duration(float64(base) * factor)
	if ttl < minTTL {
		return minTTL
	}
	if ttl > maxTTL {
		return maxTTL
	}
	return ttl
}
