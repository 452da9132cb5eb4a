package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "auth:denylist:"

// TokenDenylist records revoked token ids in Redis until they expire on their
// own. The auth middleware consults it on every protected request.
type TokenDenylist struct {
	client *redis.Client
}

// NewTokenDenylist builds the denylist.
func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client}
}

// Revoke marks a token id revoked for the remaining token lifetime.
func (d *TokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if d == nil || d.client == nil || jti == "" {
		return nil
	}
	return d.client.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether the token id has been revoked.
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.client == nil || jti == "" {
		return false, nil
	}
	_, err := d.client.Get(ctx, denylistKeyPrefix+jti).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
