// Package redisstock keeps stock counters in Redis hashes. Every write is a
// Lua script, so each primitive runs as one step on the server.
package redisstock

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/ledger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/model"
)

var (
	_ ledger.StockStore = (*Store)(nil)
	_ ledger.Seeder     = (*Store)(nil)
)

// Result codes returned by the scripts.
const (
	codeMissing  = -1
	codeRejected = 0
	codeApplied  = 1
)

var (
	decrementScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 0 then
    return {-1, 0, 0}
end
local stock = tonumber(redis.call('hget', KEYS[1], 'stock'))
local version = tonumber(redis.call('hget', KEYS[1], 'version'))
local qty = tonumber(ARGV[1])
if stock < qty then
    return {0, stock, version}
end
stock = redis.call('hincrby', KEYS[1], 'stock', -qty)
version = redis.call('hincrby', KEYS[1], 'version', 1)
return {1, stock, version}
`)

	compareAndSwapScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 0 then
    return {-1, 0, 0}
end
local stock = tonumber(redis.call('hget', KEYS[1], 'stock'))
local version = tonumber(redis.call('hget', KEYS[1], 'version'))
if version ~= tonumber(ARGV[1]) then
    return {0, stock, version}
end
redis.call('hset', KEYS[1], 'stock', ARGV[2])
version = redis.call('hincrby', KEYS[1], 'version', 1)
return {1, tonumber(ARGV[2]), version}
`)

	adjustScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 0 then
    return {-1, 0, 0, 0}
end
local before = tonumber(redis.call('hget', KEYS[1], 'stock'))
local after = before + tonumber(ARGV[1])
if after < 0 then
    after = 0
end
redis.call('hset', KEYS[1], 'stock', after)
local version = redis.call('hincrby', KEYS[1], 'version', 1)
return {1, after, version, after - before}
`)

	initScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 1 then
    return 0
end
redis.call('hset', KEYS[1], 'stock', ARGV[1], 'version', 0)
return 1
`)
)

// Store implements ledger.StockStore on Redis. It cannot hold a row lock, so
// the pessimistic strategy falls back to the ledger-wide mutex.
type Store struct {
	client redis.UniversalClient
	prefix string
}

type Option func(*Store)

// WithKeyPrefix namespaces the hash keys. The default is "stock".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "stock",
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) key(productID uuid.UUID) string {
	return fmt.Sprintf("%s:{%s}", s.prefix, productID)
}

func (s *Store) Init(ctx context.Context, productID uuid.UUID, stock int) error {
	if stock < 0 {
		return fmt.Errorf("initial stock must not be negative, got %d", stock)
	}

	created, err := initScript.Run(ctx, s.client, []string{s.key(productID)}, stock).Int()
	if err != nil {
		return fmt.Errorf("run init script: %w", err)
	}
	if created != codeApplied {
		return fmt.Errorf("stock for product %s already initialised", productID)
	}

	return nil
}

func (s *Store) Drop(ctx context.Context, productID uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(productID)).Err(); err != nil {
		return fmt.Errorf("delete stock key: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, productID uuid.UUID) (model.StockLevel, error) {
	values, err := s.client.HMGet(ctx, s.key(productID), "stock", "version").Result()
	if err != nil {
		return model.StockLevel{}, fmt.Errorf("read stock hash: %w", err)
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return model.StockLevel{}, apperr.NewProductNotFound(productID)
	}

	stock, err := parseInt(values[0])
	if err != nil {
		return model.StockLevel{}, fmt.Errorf("parse stock: %w", err)
	}
	version, err := parseInt(values[1])
	if err != nil {
		return model.StockLevel{}, fmt.Errorf("parse version: %w", err)
	}

	return model.StockLevel{
		ProductID: productID,
		Stock:     int(stock),
		Version:   version,
	}, nil
}

func (s *Store) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (model.StockLevel, bool, error) {
	res, err := s.run(ctx, decrementScript, productID, qty)
	if err != nil {
		return model.StockLevel{}, false, fmt.Errorf("run decrement script: %w", err)
	}
	if res.code != codeApplied {
		return model.StockLevel{}, false, nil
	}

	return res.level, true, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, productID uuid.UUID, expectedVersion int64, newStock int) (model.StockLevel, bool, error) {
	if newStock < 0 {
		return model.StockLevel{}, false, fmt.Errorf("stock must not be negative, got %d", newStock)
	}

	res, err := s.run(ctx, compareAndSwapScript, productID, expectedVersion, newStock)
	if err != nil {
		return model.StockLevel{}, false, fmt.Errorf("run compare and swap script: %w", err)
	}
	if res.code != codeApplied {
		return model.StockLevel{}, false, nil
	}

	return res.level, true, nil
}

func (s *Store) Adjust(ctx context.Context, productID uuid.UUID, delta int) (model.StockLevel, int, error) {
	res, err := s.run(ctx, adjustScript, productID, delta)
	if err != nil {
		return model.StockLevel{}, 0, fmt.Errorf("run adjust script: %w", err)
	}
	if res.code == codeMissing {
		return model.StockLevel{}, 0, apperr.NewProductNotFound(productID)
	}

	return res.level, res.applied, nil
}

type scriptResult struct {
	code    int64
	level   model.StockLevel
	applied int
}

func (s *Store) run(ctx context.Context, script *redis.Script, productID uuid.UUID, args ...any) (scriptResult, error) {
	values, err := script.Run(ctx, s.client, []string{s.key(productID)}, args...).Int64Slice()
	if err != nil {
		return scriptResult{}, err
	}
	if len(values) < 3 {
		return scriptResult{}, errors.New("unexpected script reply")
	}

	res := scriptResult{
		code: values[0],
		level: model.StockLevel{
			ProductID: productID,
			Stock:     int(values[1]),
			Version:   values[2],
		},
	}
	if len(values) > 3 {
		res.applied = int(values[3])
	}

	return res, nil
}

func parseInt(v any) (int64, error) {
	str, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
	return strconv.ParseInt(str, 10, 64)
}
