// internal/service/idempotency.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/models"
)

const idempotencyTTL = 24 * time.Hour

// KeyValueStore is the subset of the Redis client the checkout cache needs
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// IdempotencyCache replays checkout responses for repeated Idempotency-Key
// headers so a retried request never creates a second gateway transaction.
type IdempotencyCache struct {
	kv     KeyValueStore
	logger *zap.Logger
}

func NewIdempotencyCache(kv KeyValueStore, logger *zap.Logger) *IdempotencyCache {
	return &IdempotencyCache{kv: kv, logger: logger}
}

func (c *IdempotencyCache) Get(ctx context.Context, key string) (*models.CheckoutResponse, bool) {
	data, err := c.kv.Get(ctx, cacheKey(key))
	if err != nil {
		return nil, false
	}

	var resp models.CheckoutResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Warn("discarding corrupt idempotency entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &resp, true
}

func (c *IdempotencyCache) Put(ctx context.Context, key string, resp *models.CheckoutResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("failed to encode idempotency entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.kv.Set(ctx, cacheKey(key), data, idempotencyTTL); err != nil {
		c.logger.Warn("failed to store idempotency entry", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(key string) string {
	return fmt.Sprintf("idempotency:checkout:%s", key)
}
