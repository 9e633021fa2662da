package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/karandev/voice-inventory/internal/core/domain"
)

const (
	productKeyPrefix = "inventory:product:"
	productsSetKey   = "inventory:products"
	salesListKey     = "inventory:sales"
	logListKey       = "inventory:command_log"
)

// Check-and-decrement as one server-side operation. Returns {applied, qty}
// where qty is the remaining quantity on success and the untouched on-hand
// quantity on refusal.
var removeStockScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'quantity')
if not current then
	return {0, 0}
end

current = tonumber(current)
local qty = tonumber(ARGV[1])
if current >= qty then
	local left = redis.call('HINCRBY', KEYS[1], 'quantity', -qty)
	redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
	return {1, left}
end

return {0, current}
`)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) GetQuantity(ctx context.Context, product string) (int, bool, error) {
	val, err := r.client.HGet(ctx, productKeyPrefix+product, "quantity").Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("hget quantity: %w", err)
	}
	qty, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("parse quantity: %w", err)
	}
	return qty, true, nil
}

func (r *RedisStore) AddStock(ctx context.Context, product string, qty int) (int, error) {
	key := productKeyPrefix + product
	now := time.Now().UTC().Format(time.RFC3339Nano)

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, productsSetKey, product)
	pipe.HSetNX(ctx, key, "created_at", now)
	pipe.HSet(ctx, key, "updated_at", now)
	incr := pipe.HIncrBy(ctx, key, "quantity", int64(qty))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("add stock: %w", err)
	}
	return int(incr.Val()), nil
}

func (r *RedisStore) RemoveStock(ctx context.Context, product string, qty int) (int, error) {
	key := productKeyPrefix + product
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := removeStockScript.Run(ctx, r.client, []string{key}, qty, now).Result()
	if err != nil {
		return 0, fmt.Errorf("remove stock: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, fmt.Errorf("remove stock: unexpected script reply %v", res)
	}
	applied, _ := vals[0].(int64)
	current, _ := vals[1].(int64)

	if applied != 1 {
		return int(current), domain.ErrInsufficientStock
	}
	return int(current), nil
}

func (r *RedisStore) SetPricing(ctx context.Context, product string, cost, selling decimal.Decimal) error {
	key := productKeyPrefix + product
	now := time.Now().UTC().Format(time.RFC3339Nano)

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, productsSetKey, product)
	pipe.HSetNX(ctx, key, "created_at", now)
	pipe.HSetNX(ctx, key, "quantity", 0)
	pipe.HSet(ctx, key,
		"cost_price", cost.String(),
		"selling_price", selling.String(),
		"updated_at", now)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set pricing: %w", err)
	}
	return nil
}

func (r *RedisStore) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	return r.rpushJSON(ctx, salesListKey, sale)
}

func (r *RedisStore) AppendLog(ctx context.Context, entry domain.CommandLogEntry) error {
	return r.rpushJSON(ctx, logListKey, entry)
}

func (r *RedisStore) Entries(ctx context.Context) ([]domain.InventoryEntry, error) {
	products, err := r.client.SMembers(ctx, productsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var out []domain.InventoryEntry
	for _, product := range products {
		fields, err := r.client.HGetAll(ctx, productKeyPrefix+product).Result()
		if err != nil {
			return nil, fmt.Errorf("read product %q: %w", product, err)
		}
		if len(fields) == 0 {
			continue
		}
		e := domain.InventoryEntry{
			Product:      product,
			CostPrice:    decimal.Zero,
			SellingPrice: decimal.Zero,
		}
		e.Quantity, _ = strconv.Atoi(fields["quantity"])
		if v, err := decimal.NewFromString(fields["cost_price"]); err == nil {
			e.CostPrice = v
		}
		if v, err := decimal.NewFromString(fields["selling_price"]); err == nil {
			e.SellingPrice = v
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisStore) Sales(ctx context.Context) ([]domain.SaleRecord, error) {
	raw, err := r.client.LRange(ctx, salesListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := make([]domain.SaleRecord, 0, len(raw))
	for _, item := range raw {
		var s domain.SaleRecord
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("decode sale: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisStore) Logs(ctx context.Context) ([]domain.CommandLogEntry, error) {
	raw, err := r.client.LRange(ctx, logListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list command log: %w", err)
	}
	out := make([]domain.CommandLogEntry, 0, len(raw))
	for _, item := range raw {
		var e domain.CommandLogEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisStore) rpushJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s item: %w", key, err)
	}
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}
