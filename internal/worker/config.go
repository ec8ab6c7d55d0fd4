// Package worker runs estimate jobs delivered over Pub/Sub.
package worker

import (
	"time"
)

// Config holds configuration for the estimate worker.
type Config struct {
	// Concurrency is the number of jobs processed at once.
	// Default: 4
	Concurrency int

	// Timeout bounds the estimate pipeline of one job.
	// Default: 2 minutes
	Timeout time.Duration

	// MaxExtension is how long Pub/Sub keeps extending a message's ack
	// deadline while it is being processed.
	// Default: 10 minutes
	MaxExtension time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:  4,
		Timeout:      2 * time.Minute,
		MaxExtension: 10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxExtension <= 0 {
		c.MaxExtension = def.MaxExtension
	}
	return c
}
