package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radgate/backend/internal/aaa"
	"github.com/radgate/backend/internal/models"
)

// subscriberCacheTTL bounds how stale a cached subscriber may get between
// quota writes.
const subscriberCacheTTL = 5 * time.Minute

// cachedSubscriber is the cache payload. The model hides its credential
// fields from API JSON (`json:"-"`), but the authenticate path needs them
// back on a cache hit, so the envelope carries them explicitly.
type cachedSubscriber struct {
	models.Subscriber
	PasswordPlain string `json:"password_plain"`
	PasswordHash  string `json:"password_hash"`
}

func newCachedSubscriber(sub *models.Subscriber) cachedSubscriber {
	return cachedSubscriber{
		Subscriber:    *sub,
		PasswordPlain: sub.PasswordPlain,
		PasswordHash:  sub.PasswordHash,
	}
}

func (c *cachedSubscriber) subscriber() *models.Subscriber {
	sub := c.Subscriber
	sub.PasswordPlain = c.PasswordPlain
	sub.PasswordHash = c.PasswordHash
	return &sub
}

// CachedSubscribers is a Redis read-through decorator over a subscriber
// store. Authorize traffic is read-heavy and bursts when a NAS
// re-authenticates its whole user base, so lookups are cached and the
// cache is dropped on every quota write.
type CachedSubscribers struct {
	inner aaa.SubscriberStore
	redis *redis.Client
}

func NewCachedSubscribers(inner aaa.SubscriberStore, rdb *redis.Client) *CachedSubscribers {
	return &CachedSubscribers{inner: inner, redis: rdb}
}

func cacheKey(username string, tenantID uint) string {
	return fmt.Sprintf("subscriber:%d:%s", tenantID, username)
}

func (c *CachedSubscribers) FindByUsernameAndTenant(username string, tenantID uint) (*models.Subscriber, error) {
	ctx := context.Background()
	key := cacheKey(username, tenantID)

	if payload, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var cached cachedSubscriber
		if json.Unmarshal(payload, &cached) == nil {
			return cached.subscriber(), nil
		}
	}

	sub, err := c.inner.FindByUsernameAndTenant(username, tenantID)
	if err != nil || sub == nil {
		return sub, err
	}

	if payload, err := json.Marshal(newCachedSubscriber(sub)); err == nil {
		if err := c.redis.Set(ctx, key, payload, subscriberCacheTTL).Err(); err != nil {
			log.Printf("Cache: failed to store %s: %v", key, err)
		}
	}
	return sub, nil
}

func (c *CachedSubscribers) FindByUsername(username string) (*models.Subscriber, error) {
	return c.inner.FindByUsername(username)
}

func (c *CachedSubscribers) UpdateQuotas(sub *models.Subscriber) error {
	if err := c.inner.UpdateQuotas(sub); err != nil {
		return err
	}
	if err := c.redis.Del(context.Background(), cacheKey(sub.Username, sub.TenantID)).Err(); err != nil {
		log.Printf("Cache: failed to invalidate subscriber %s: %v", sub.Username, err)
	}
	return nil
}
