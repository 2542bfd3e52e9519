package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/orders-inventory/internal/config"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
)

func TestNew(t *testing.T) {
	type Config struct {
		Log   config.Log
		Store config.Store
		Kafka config.Kafka
	}

	t.Run("Should apply defaults", func(t *testing.T) {
		cfg, err := config.New[Config]()
		require.NoError(t, err)

		assert.Equal(t, config.LogFormatJSON, cfg.Log.Format)
		assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
		assert.Equal(t, config.StoreDriverMemory, cfg.Store.Driver)
		assert.Equal(t, ledger.StrategyAtomic, cfg.Store.Strategy)
		assert.Equal(t, 3, cfg.Store.MaxRetries)
		assert.False(t, cfg.Kafka.Enabled())
	})

	t.Run("Should read the environment", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "text")
		t.Setenv("STORE_DRIVER", "redis")
		t.Setenv("STOCK_STRATEGY", "pessimistic")
		t.Setenv("STOCK_LOW_THRESHOLD", "4")
		t.Setenv("KAFKA_ADDRESSES", "kafka-1:9092,kafka-2:9092")

		cfg, err := config.New[Config]()
		require.NoError(t, err)

		assert.Equal(t, config.LogFormatText, cfg.Log.Format)
		assert.Equal(t, config.StoreDriverRedis, cfg.Store.Driver)
		assert.Equal(t, ledger.StrategyPessimistic, cfg.Store.Strategy)
		assert.Equal(t, 4, cfg.Store.LowStockThreshold)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Addresses)
		assert.True(t, cfg.Kafka.Enabled())
	})

	t.Run("Should reject unknown values", func(t *testing.T) {
		t.Setenv("STOCK_STRATEGY", "lottery")

		_, err := config.New[Config]()
		assert.Error(t, err)
	})
}

func TestNew_Validate(t *testing.T) {
	type Config struct {
		Store config.Store
		Relay config.Relay
		Otel  config.Otel
	}

	t.Run("Should reject an out of range section", func(t *testing.T) {
		t.Setenv("STOCK_MAX_RETRIES", "0")

		_, err := config.New[Config]()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Store")
	})

	t.Run("Should report every bad section", func(t *testing.T) {
		t.Setenv("RELAY_BATCH_SIZE", "0")
		t.Setenv("OTEL_TRACE_ID_RATIO", "1.5")

		_, err := config.New[Config]()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Relay")
		assert.Contains(t, err.Error(), "Otel")
	})

	t.Run("Should validate a single section", func(t *testing.T) {
		t.Setenv("POSTGRES_HOST", "localhost")
		t.Setenv("POSTGRES_PORT", "5432")
		t.Setenv("POSTGRES_USER", "app")
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("POSTGRES_DB", "inventory")
		t.Setenv("POSTGRES_MIN_CONNS", "20")

		_, err := config.New[config.Postgres]()
		assert.Error(t, err)
	})

	t.Run("Should accept console as text", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "console")

		cfg, err := config.New[config.Log]()
		require.NoError(t, err)
		assert.Equal(t, config.LogFormatText, cfg.Format)
	})
}
