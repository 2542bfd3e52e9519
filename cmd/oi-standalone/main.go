package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tuanvumaihuynh/orders-inventory/internal/config"
	"github.com/tuanvumaihuynh/orders-inventory/internal/event"
	"github.com/tuanvumaihuynh/orders-inventory/internal/http"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/log"
	"github.com/tuanvumaihuynh/orders-inventory/internal/relay"
	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/db"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/memory"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/mq"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/redisstock"
	"github.com/tuanvumaihuynh/orders-inventory/internal/telemetry"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/cmdutil"
)

const localBusBuffer = 1024

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log   config.Log
		Store config.Store
		Redis config.Redis
		HTTP  config.HTTP
		Relay config.Relay
		Kafka config.Kafka
		Otel  config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	store, closeStore, err := openStore(ctx, cfg.Store, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		producer mq.Producer
		consumer mq.Consumer
	)
	if cfg.Kafka.Enabled() {
		kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
		if err != nil {
			return fmt.Errorf("error creating kafka producer: %w", err)
		}
		defer kafkaProducer.Close()

		kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
		if err != nil {
			return fmt.Errorf("error creating kafka consumer: %w", err)
		}
		defer kafkaConsumer.Close()

		producer, consumer = kafkaProducer, kafkaConsumer
	} else {
		bus := mq.NewLocalBus(logger, localBusBuffer)
		producer, consumer = bus, bus
		logger.InfoContext(ctx, "no kafka brokers configured, using the in-process bus")
	}

	stockLedger := ledger.New(cfg.Store.Strategy, store.Stock(),
		ledger.WithMaxRetries(cfg.Store.MaxRetries),
		ledger.WithLogger(logger),
	)
	productService := service.NewProductService(logger, store, stockLedger, cfg.Store.LowStockThreshold)
	orderService := service.NewOrderService(logger, store, stockLedger)

	logger.InfoContext(ctx, "stock ledger configured",
		slog.String("store", cfg.Store.Driver.String()),
		slog.String("strategy", cfg.Store.Strategy.String()),
	)

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	wg.Go(func() {
		svc := event.New(logger, consumer, cfg.Store.LowStockThreshold)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running event service: %w", err))
		}
		logger.InfoContext(ctx, "event service started")

		<-interruptChan

		logger.InfoContext(ctx, "event service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "event service is stopped")
	})

	wg.Go(func() {
		svc, err := http.New(cfg.HTTP, logger, productService, orderService)
		if err != nil {
			panic(fmt.Errorf("error creating http service: %w", err))
		}
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, store, producer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Wait()

	return nil
}

// openStore connects the storage backend selected by cfg.Driver. The
// returned func releases its connections.
func openStore(ctx context.Context, cfg config.Store, redisCfg config.Redis) (storage.Storage, func(), error) {
	switch cfg.Driver {
	case config.StoreDriverPostgres:
		pgCfg, err := config.New[config.Postgres]()
		if err != nil {
			return nil, nil, fmt.Errorf("error loading postgres config: %w", err)
		}

		pgxPool, err := db.NewPgxPool(ctx, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating pgx pool: %w", err)
		}

		return storage.NewPostgres(db.NewClient(pgxPool)), pgxPool.Close, nil

	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("error connecting to redis: %w", err)
		}

		stock := redisstock.New(client, redisstock.WithKeyPrefix(redisCfg.KeyPrefix))
		return memory.New(memory.WithStockStore(stock)), func() { _ = client.Close() }, nil

	default:
		return memory.New(), func() {}, nil
	}
}
