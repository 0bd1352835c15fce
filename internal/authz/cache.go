package authz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"autoshutdown/api/internal/identity"
)

// PrincipalCache keeps recent identity-service answers in Redis so a burst
// of rule applies does not hammer the principal endpoint. Entries are keyed
// by a digest of the credential; the credential itself is never stored.
type PrincipalCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPrincipalCache connects to Redis and verifies the connection.
func NewPrincipalCache(redisURL string, ttl time.Duration) (*PrincipalCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &PrincipalCache{client: client, prefix: "principal:", ttl: ttl}, nil
}

// NewPrincipalCacheWithClient builds a cache from an existing Redis client.
func NewPrincipalCacheWithClient(client *redis.Client, ttl time.Duration) *PrincipalCache {
	return &PrincipalCache{client: client, prefix: "principal:", ttl: ttl}
}

func (c *PrincipalCache) key(credential string) string {
	digest := sha256.Sum256([]byte(credential))
	return c.prefix + hex.EncodeToString(digest[:])
}

// Get returns the cached principal for a credential. Cache trouble is
// treated as a miss: authorization must not fail because Redis did.
func (c *PrincipalCache) Get(ctx context.Context, credential string) (identity.Principal, bool) {
	raw, err := c.client.Get(ctx, c.key(credential)).Result()
	if err == redis.Nil {
		return identity.Principal{}, false
	}
	if err != nil {
		log.Printf("authz: principal cache read failed: %v", err)
		return identity.Principal{}, false
	}

	var principal identity.Principal
	if err := json.Unmarshal([]byte(raw), &principal); err != nil {
		return identity.Principal{}, false
	}
	return principal, true
}

// Put stores a principal answer for the cache TTL. Failures are logged and
// otherwise ignored.
func (c *PrincipalCache) Put(ctx context.Context, credential string, principal identity.Principal) {
	raw, err := json.Marshal(principal)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(credential), raw, c.ttl).Err(); err != nil {
		log.Printf("authz: principal cache write failed: %v", err)
	}
}

// Close closes the underlying Redis connection.
func (c *PrincipalCache) Close() error {
	return c.client.Close()
}
