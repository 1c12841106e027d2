package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// mutateRetries bounds the optimistic-concurrency retry loop.
const mutateRetries = 5

// CartRepository stores the single active cart per user. Mutate is the
// only safe way to change a cart under concurrent requests: it re-reads
// and re-applies the mutation until the optimistic write succeeds.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID string) error
	Mutate(ctx context.Context, userID string, fn func(*models.Cart) error) (*models.Cart, error)
}

// RedisCartRepository keeps each cart as one JSON document under
// cart:user:<id> with a TTL.
type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisCartRepository) key(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// Get returns the user's cart, or (nil, nil) when none exists yet.
func (r *RedisCartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *RedisCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	cart.Version++
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(cart.UserID), data, r.ttl).Err()
}

func (r *RedisCartRepository) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

// Mutate applies fn to the user's cart (creating an empty one when
// absent) inside a WATCH/MULTI loop, so two concurrent mutations of the
// same cart serialize instead of both racing past a stale read. A
// validation error from fn aborts without retrying.
func (r *RedisCartRepository) Mutate(ctx context.Context, userID string, fn func(*models.Cart) error) (*models.Cart, error) {
	key := r.key(userID)
	var result *models.Cart

	txn := func(tx *redis.Tx) error {
		cart := &models.Cart{UserID: userID, Items: []models.CartItem{}}

		data, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if err := json.Unmarshal([]byte(data), cart); err != nil {
				return err
			}
		}

		if err := fn(cart); err != nil {
			return err
		}

		cart.Version++
		cart.UpdatedAt = time.Now()
		payload, err := json.Marshal(cart)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		result = cart
		return nil
	}

	for i := 0; i < mutateRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("cart mutation for user %s kept conflicting", userID)
}
