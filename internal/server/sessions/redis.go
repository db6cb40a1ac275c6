package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comfort-stereo/gatekeeper/internal/common"
)

const keyPrefix = "session:"

// tokenBytes is the entropy of a session token before hex encoding.
// 32 bytes = 256 bits, well above the 128-bit floor.
const tokenBytes = 32

// rotateScript moves a session from one token to another in a single server-
// side step. Deleting the old key and creating the new one cannot interleave
// with another rotation: the second caller finds the old key gone and gets
// nothing. Returns the stored user ID, or a nil reply if the old token is
// not live.
var rotateScript = redis.NewScript(`
local user = redis.call("GET", KEYS[1])
if not user then
    return false
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], user, "PX", ARGV[1])
return user
`)

// RedisStore keeps sessions in Redis under the "session:" keyspace, relying
// on per-key expiry for eviction.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(token string) string {
	return keyPrefix + token
}

func (s *RedisStore) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("token generation error: %w", err)
	}

	if err := s.client.Set(ctx, s.key(token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis error: %w", err)
	}

	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("redis error: %w", err)
	}

	return userID, nil
}

func (s *RedisStore) Rotate(ctx context.Context, token string, ttl time.Duration) (string, error) {
	newToken, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("token generation error: %w", err)
	}

	keys := []string{s.key(token), s.key(newToken)}
	err = rotateScript.Run(ctx, s.client, keys, ttl.Milliseconds()).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("redis error: %w", err)
	}

	return newToken, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) (bool, error) {
	deleted, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	return deleted > 0, nil
}
