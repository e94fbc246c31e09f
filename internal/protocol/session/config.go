package session

import (
	"time"

	"github.com/rs/zerolog"
)

// BackoffConfig defines retry backoff behavior for callers that reopen a
// session after a fatal error.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// Config defines one session over an already-open transport.
type Config struct {
	// Host is sent with the v2 handshake when non-empty.
	Host    string
	Version uint32
	// MaxFrameBytes bounds a single reply value. Zero leaves it unbounded.
	MaxFrameBytes uint32
	Logger        zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Version: 2,
		Logger:  zerolog.Nop(),
	}
}
