package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisRevocationPrefix = "auth:revoked:"

// RedisRevoker is a shared revocation list for multi-instance deployments.
// Unlike a cache, it fails closed: if redis is unreachable the caller gets
// the error and must deny access rather than assume the token is fine.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker creates a redis-backed revocation list.
func NewRedisRevoker(addr, password string, db int) *RedisRevoker {
	return &RedisRevoker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisRevokerFromClient wraps an existing client.
func NewRedisRevokerFromClient(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

// Revoke marks a token ID as revoked. The key expires with the token so the
// list never outgrows the set of live tokens.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, redisRevocationPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether a token ID is on the list.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, redisRevocationPrefix+tokenID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, WrapStoreError(err)
	}
	return true, nil
}

var _ Revoker = (*RedisRevoker)(nil)
