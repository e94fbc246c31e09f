package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns how long to wait before reopening a session on
// the given 1-based attempt. The first attempt waits InitialDelay; later
// ones grow by Multiplier up to MaxDelay. With Jitter set the delay is
// scaled into [0.5, 1.5) by rng. A nil rng disables jitter.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || cfg.InitialDelay <= 0 {
		return max(cfg.InitialDelay, 0)
	}
	growth := max(cfg.Multiplier, 1.0)
	delay := float64(cfg.InitialDelay) * math.Pow(growth, float64(attempt-1))
	if limit := float64(cfg.MaxDelay); limit > 0 {
		delay = math.Min(delay, limit)
	}
	return time.Duration(delay * jitterFactor(cfg.Jitter, rng))
}

func jitterFactor(enabled bool, rng *rand.Rand) float64 {
	if !enabled || rng == nil {
		return 1.0
	}
	return 0.5 + rng.Float64()
}
