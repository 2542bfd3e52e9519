package config

import (
	"errors"
	"time"
)

// Relay tunes how often the outbox is drained and how many events are
// published per pass.
type Relay struct {
	BatchSize uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	Interval  time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`
}

func (c Relay) Validate() error {
	if c.BatchSize == 0 {
		return errors.New("relay batch size must be positive")
	}
	if c.Interval <= 0 {
		return errors.New("relay interval must be positive")
	}
	return nil
}
