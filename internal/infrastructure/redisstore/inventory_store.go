package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
)

const keyPrefix = "inventory:"

// debitScript decrements a stock counter only when the full amount is
// available. Running as a single Lua script makes the read-modify-write
// atomic on the server, so two orders racing on one SKU cannot both win the
// last units or push the counter negative.
//
// Returns: new quantity on success, -1 on insufficient stock, -2 on missing key.
var debitScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false then
  return -2
end
local quantity = tonumber(current)
local amount = tonumber(ARGV[1])
if quantity < amount then
  return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`)

// InventoryStore keeps per-SKU stock counters in Redis. Status and update
// timestamps are derived on read; the counter is the single source of truth.
type InventoryStore struct {
	client *redis.Client
}

func NewInventoryStore(addr string) *InventoryStore {
	return &InventoryStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func NewInventoryStoreWithClient(client *redis.Client) *InventoryStore {
	return &InventoryStore{client: client}
}

func (s *InventoryStore) All(ctx context.Context) ([]dominv.Record, error) {
	var out []dominv.Record
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		code := iter.Val()[len(keyPrefix):]
		rec, err := s.LookupByCode(ctx, code)
		if err != nil {
			if err == dominv.ErrNotFound {
				continue // expired between scan and get
			}
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis inventory: scan: %w", err)
	}
	return out, nil
}

func (s *InventoryStore) LookupByCodes(ctx context.Context, codes []string) ([]dominv.Record, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = keyPrefix + code
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis inventory: mget: %w", err)
	}

	out := make([]dominv.Record, 0, len(codes))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // missing code: absent from the result, not an error
		}
		quantity, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return nil, fmt.Errorf("redis inventory: corrupt counter for %s: %w", codes[i], convErr)
		}
		out = append(out, record(codes[i], quantity))
	}
	return out, nil
}

func (s *InventoryStore) LookupByCode(ctx context.Context, code string) (*dominv.Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+code).Result()
	if err == redis.Nil {
		return nil, dominv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis inventory: get: %w", err)
	}
	quantity, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("redis inventory: corrupt counter for %s: %w", code, err)
	}
	rec := record(code, quantity)
	return &rec, nil
}

func (s *InventoryStore) ReduceStock(ctx context.Context, code string, amount int) error {
	if amount <= 0 {
		return dominv.ErrInvalidQuantity
	}
	res, err := debitScript.Run(ctx, s.client, []string{keyPrefix + code}, amount).Int64()
	if err != nil {
		return fmt.Errorf("redis inventory: debit: %w", err)
	}
	switch res {
	case -2:
		return dominv.ErrNotFound
	case -1:
		return dominv.ErrInsufficientStock
	default:
		return nil
	}
}

func (s *InventoryStore) AddStock(ctx context.Context, code string, amount int) error {
	if amount <= 0 {
		return dominv.ErrInvalidQuantity
	}
	exists, err := s.client.Exists(ctx, keyPrefix+code).Result()
	if err != nil {
		return fmt.Errorf("redis inventory: exists: %w", err)
	}
	if exists == 0 {
		return dominv.ErrNotFound
	}
	if err := s.client.IncrBy(ctx, keyPrefix+code, int64(amount)).Err(); err != nil {
		return fmt.Errorf("redis inventory: restock: %w", err)
	}
	return nil
}

func (s *InventoryStore) Put(ctx context.Context, rec *dominv.Record) error {
	if rec == nil {
		return nil
	}
	if err := s.client.Set(ctx, keyPrefix+rec.SKUCode, rec.Quantity, 0).Err(); err != nil {
		return fmt.Errorf("redis inventory: put: %w", err)
	}
	return nil
}

func record(code string, quantity int) dominv.Record {
	return dominv.Record{
		SKUCode:   code,
		Quantity:  quantity,
		Status:    dominv.DeriveStatus(quantity),
		UpdatedAt: time.Now().UTC(),
	}
}
