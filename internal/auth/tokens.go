package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danisworo/go-commerce-api/internal/redisx"
)

// TokenStore issues and resolves opaque bearer tokens.
type TokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, bool)
	RevokeAll(ctx context.Context, userID string) error
}

// RedisTokens keeps token -> user_id entries plus a per-user set so logout
// can revoke everything the user holds. Both sides share one TTL.
type RedisTokens struct {
	R   *redis.Client
	TTL time.Duration
}

func (t *RedisTokens) ttl() time.Duration {
	if t.TTL > 0 {
		return t.TTL
	}
	return redisx.TTLAuthToken
}

func (t *RedisTokens) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := t.R.Set(ctx, fmt.Sprintf(redisx.KeyAuthToken, token), userID, t.ttl()).Err(); err != nil {
		return "", err
	}
	setKey := fmt.Sprintf(redisx.KeyUserTokens, userID)
	if err := t.R.SAdd(ctx, setKey, token).Err(); err != nil {
		return "", err
	}
	_ = t.R.Expire(ctx, setKey, t.ttl()).Err()
	return token, nil
}

func (t *RedisTokens) Resolve(ctx context.Context, token string) (string, bool) {
	userID, err := t.R.Get(ctx, fmt.Sprintf(redisx.KeyAuthToken, token)).Result()
	if err != nil || userID == "" {
		return "", false
	}
	return userID, true
}

func (t *RedisTokens) RevokeAll(ctx context.Context, userID string) error {
	setKey := fmt.Sprintf(redisx.KeyUserTokens, userID)
	tokens, err := t.R.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		_ = t.R.Del(ctx, fmt.Sprintf(redisx.KeyAuthToken, tok)).Err()
	}
	return t.R.Del(ctx, setKey).Err()
}
