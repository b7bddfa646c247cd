// Package backoff configures the exponential retry schedule used by the
// WebSocket reconnection engine.
package backoff

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds the exponential backoff settings.
type Config struct {
	InitialInterval     time.Duration // first retry delay (default 1s)
	Multiplier          float64       // growth factor (default 2.0)
	MaxInterval         time.Duration // delay ceiling (default 60s)
	RandomizationFactor float64       // jitter; 0 gives exact doubling
}

// applyDefaults fills zero fields with the reconnection defaults.
func (c *Config) applyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = 1 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 60 * time.Second
	}
}

// New returns an exponential backoff that never gives up on its own:
// MaxElapsedTime is zero, so NextBackOff never returns Stop. Stopping is
// the caller's decision (explicit close).
func New(cfg Config) *backoff.ExponentialBackOff {
	cfg.applyDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.RandomizationFactor = cfg.RandomizationFactor
	bo.Multiplier = cfg.Multiplier
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
