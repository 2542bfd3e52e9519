package config

import (
	"fmt"
	"strings"

	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
)

type Store struct {
	Driver StoreDriver `env:"STORE_DRIVER" envDefault:"memory"`

	Strategy          ledger.Strategy `env:"STOCK_STRATEGY" envDefault:"atomic"`
	MaxRetries        int             `env:"STOCK_MAX_RETRIES" envDefault:"3"`
	LowStockThreshold int             `env:"STOCK_LOW_THRESHOLD" envDefault:"10"`
}

func (c Store) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("stock max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold must not be negative, got %d", c.LowStockThreshold)
	}
	return nil
}

// StoreDriver selects where catalog, orders and stock counters live.
type StoreDriver uint8

const (
	// StoreDriverMemory keeps everything in process memory.
	StoreDriverMemory StoreDriver = iota
	// StoreDriverPostgres keeps everything in PostgreSQL.
	StoreDriverPostgres
	// StoreDriverRedis keeps stock counters in Redis and the rest in memory.
	StoreDriverRedis
)

func (d StoreDriver) String() string {
	return []string{"memory", "postgres", "redis"}[d]
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *StoreDriver) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "memory":
		*d = StoreDriverMemory
	case "postgres":
		*d = StoreDriverPostgres
	case "redis":
		*d = StoreDriverRedis
	default:
		return fmt.Errorf("unknown store driver: %s", text)
	}
	return nil
}

func (d StoreDriver) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
