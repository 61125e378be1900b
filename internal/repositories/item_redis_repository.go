package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sweetshop/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	itemKeyPrefix = "item:"
	itemIndexKey  = "items"
)

// KEYS[1] item hash, KEYS[2] id index. ARGV[1] id, ARGV[2..] field/value pairs.
var createItemScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// KEYS[1] item hash. ARGV field/value pairs.
var updateItemScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return redis.call('HGETALL', KEYS[1])
`)

// KEYS[1] item hash. ARGV[1] updated_at.
var decrementItemScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'quantity')
if not current then
	return false
end
if tonumber(current) <= 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], 'quantity', -1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

// KEYS[1] item hash, KEYS[2] id index. ARGV[1] id.
var deleteItemScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
	return 0
end
redis.call('SREM', KEYS[2], ARGV[1])
return 1
`)

// RedisItemRepository keeps each item in a hash and all ids in a set. Every mutation runs as a
// Lua script, so processes sharing the same Redis share one atomic decrement.
type RedisItemRepository struct {
	client *redis.Client
}

// NewRedisItemRepository creates a new instance of RedisItemRepository.
func NewRedisItemRepository(client *redis.Client) *RedisItemRepository {
	return &RedisItemRepository{client: client}
}

func itemKey(id string) string {
	return itemKeyPrefix + id
}

// Find loads every indexed item in one pipeline and applies filter.
func (r *RedisItemRepository) Find(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	ids, err := r.client.SMembers(ctx, itemIndexKey).Result()
	if err != nil {
		return nil, storeError("list item ids", err)
	}

	items := make([]models.Item, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, itemKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, storeError("load items", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between SMEMBERS and HGETALL
			continue
		}
		item, err := itemFromHash(fields)
		if err != nil {
			return nil, err
		}
		if filter.Matches(item) {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetByID returns an item by its ID.
func (r *RedisItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	fields, err := r.client.HGetAll(ctx, itemKey(id)).Result()
	if err != nil {
		return nil, storeError(fmt.Sprintf("get item %s", id), err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
	}
	item, err := itemFromHash(fields)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create validates and stores a new item.
func (r *RedisItemRepository) Create(ctx context.Context, item *models.Item) error {
	if err := models.ValidateItem(item); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	args := append([]interface{}{item.ID}, itemToArgs(*item)...)
	created, err := createItemScript.Run(ctx, r.client, []string{itemKey(item.ID), itemIndexKey}, args...).Int()
	if err != nil {
		return storeError("create item", err)
	}
	if created == 0 {
		return fmt.Errorf("item with ID %s: %w", item.ID, models.ErrConflict)
	}
	return nil
}

// Update validates the merged item and writes the patched fields, provided the item still exists.
func (r *RedisItemRepository) Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *current
	patch.Apply(&merged)
	if err := models.ValidateItem(&merged); err != nil {
		return nil, err
	}

	args := make([]interface{}, 0, 12)
	for col, val := range patch.Columns() {
		args = append(args, col, formatHashValue(val))
	}
	args = append(args, "updated_at", time.Now().UTC().Format(time.RFC3339Nano))

	vals, err := updateItemScript.Run(ctx, r.client, []string{itemKey(id)}, args...).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("update item %s", id), err)
	}
	item, err := itemFromHash(pairsToMap(vals))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the item hash and its index entry.
func (r *RedisItemRepository) Delete(ctx context.Context, id string) error {
	deleted, err := deleteItemScript.Run(ctx, r.client, []string{itemKey(id), itemIndexKey}, id).Int()
	if err != nil {
		return storeError(fmt.Sprintf("delete item %s", id), err)
	}
	if deleted == 0 {
		return fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// TryDecrement runs the check-and-decrement script.
func (r *RedisItemRepository) TryDecrement(ctx context.Context, id string) (*models.Item, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	vals, err := decrementItemScript.Run(ctx, r.client, []string{itemKey(id)}, now).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrOutOfStockOrNotFound
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("decrement item %s", id), err)
	}
	item, err := itemFromHash(pairsToMap(vals))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func itemToArgs(item models.Item) []interface{} {
	return []interface{}{
		"id", item.ID,
		"name", item.Name,
		"category", item.Category,
		"price", strconv.FormatFloat(item.Price, 'f', -1, 64),
		"quantity", strconv.Itoa(item.Quantity),
		"image", item.Image,
		"created_at", item.CreatedAt.Format(time.RFC3339Nano),
		"updated_at", item.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func formatHashValue(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func pairsToMap(vals []interface{}) map[string]string {
	fields := make(map[string]string, len(vals)/2)
	for i := 0; i+1 < len(vals); i += 2 {
		key, _ := vals[i].(string)
		val, _ := vals[i+1].(string)
		fields[key] = val
	}
	return fields
}

func itemFromHash(fields map[string]string) (models.Item, error) {
	price, err := strconv.ParseFloat(fields["price"], 64)
	if err != nil {
		return models.Item{}, fmt.Errorf("decode price of item %s: %w", fields["id"], err)
	}
	quantity, err := strconv.Atoi(fields["quantity"])
	if err != nil {
		return models.Item{}, fmt.Errorf("decode quantity of item %s: %w", fields["id"], err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return models.Item{
		ID:        fields["id"],
		Name:      fields["name"],
		Category:  fields["category"],
		Price:     price,
		Quantity:  quantity,
		Image:     fields["image"],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
