package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

const (
	cartKeyPrefix          = "cart:"
	customerCartsKeyPrefix = "customer_carts:"
)

// saveCartScript writes the cart only if its stored version still matches.
var saveCartScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if not current then
	current = '0'
end

if current ~= ARGV[1] then
	return 0
end

redis.call('HSET', KEYS[1], 'version', ARGV[2], 'data', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[4])
return 1
`)

type cartRecord struct {
	ID         string           `json:"id"`
	CustomerID string           `json:"customer_id"`
	Items      []cartItemRecord `json:"items"`
	Status     string           `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type cartItemRecord struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// RedisCartRepository stores each cart as a hash of version and JSON payload,
// with a set per customer indexing their carts.
type RedisCartRepository struct {
	client *redis.Client
}

func NewRedisCartRepository(client *redis.Client) *RedisCartRepository {
	return &RedisCartRepository{client: client}
}

func (r *RedisCartRepository) Save(ctx context.Context, cart *domain.ShoppingCart) error {
	s := cart.Snapshot()
	rec := cartRecord{
		ID:         s.ID,
		CustomerID: s.CustomerID,
		Items:      make([]cartItemRecord, 0, len(s.Items)),
		Status:     s.Status,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	for _, item := range s.Items {
		rec.Items = append(rec.Items, cartItemRecord{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	next := cart.Version() + 1
	keys := []string{cartKey(s.ID), customerCartsKey(s.CustomerID)}
	result, err := saveCartScript.Run(ctx, r.client, keys, cart.Version(), next, string(data), s.ID).Int()
	if err != nil {
		return fmt.Errorf("redis save cart: %w", err)
	}
	if result != 1 {
		return port.ErrConcurrentModification
	}

	cart.SetVersion(next)
	return nil
}

func (r *RedisCartRepository) FindByID(ctx context.Context, id domain.CartID) (*domain.ShoppingCart, error) {
	fields, err := r.client.HGetAll(ctx, cartKey(id.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return decodeCart(fields)
}

func (r *RedisCartRepository) FindByCustomerID(ctx context.Context, customerID domain.CustomerID) ([]*domain.ShoppingCart, error) {
	ids, err := r.client.SMembers(ctx, customerCartsKey(customerID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list carts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, cartKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis get carts: %w", err)
	}

	carts := make([]*domain.ShoppingCart, 0, len(ids))
	for _, cmd := range cmds {
		cart, err := decodeCart(cmd.Val())
		if err != nil {
			return nil, err
		}
		// index entries of deleted carts are skipped
		if cart != nil {
			carts = append(carts, cart)
		}
	}
	sort.Slice(carts, func(i, j int) bool {
		return carts[i].CreatedAt().Before(carts[j].CreatedAt())
	})
	return carts, nil
}

func (r *RedisCartRepository) Delete(ctx context.Context, id domain.CartID) error {
	cart, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if cart == nil {
		return nil
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cartKey(id.String()))
		pipe.SRem(ctx, customerCartsKey(cart.CustomerID().String()), id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

func decodeCart(fields map[string]string) (*domain.ShoppingCart, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	version, err := strconv.Atoi(fields["version"])
	if err != nil {
		return nil, fmt.Errorf("parse cart version: %w", err)
	}
	var rec cartRecord
	if err := json.Unmarshal([]byte(fields["data"]), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	s := domain.CartSnapshot{
		ID:         rec.ID,
		CustomerID: rec.CustomerID,
		Items:      make([]domain.CartItemSnapshot, 0, len(rec.Items)),
		Status:     rec.Status,
		Version:    version,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	for _, item := range rec.Items {
		s.Items = append(s.Items, domain.CartItemSnapshot{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return domain.RebuildShoppingCart(s)
}

func cartKey(id string) string {
	return cartKeyPrefix + id
}

func customerCartsKey(customerID string) string {
	return customerCartsKeyPrefix + customerID
}
