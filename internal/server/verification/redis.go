package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comfort-stereo/gatekeeper/internal/common"
)

const keyPrefix = "verify:"

// codeLength is the number of characters in a verification code. Codes are
// uppercase letters because a person retypes them from an email.
const codeLength = 6

// consumeScript deletes the stored code only if it matches the candidate,
// in one server-side step, so a code can be consumed at most once even
// under concurrent attempts.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    redis.call("DEL", KEYS[1])
    return 1
end
return 0
`)

// RedisStore keeps pending codes in Redis under the "verify:" keyspace,
// one key per user, with per-key expiry.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(userID string) string {
	return keyPrefix + userID
}

func (s *RedisStore) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	code, err := common.MakeRandUpperString(codeLength)
	if err != nil {
		return "", fmt.Errorf("code generation error: %w", err)
	}

	if err := s.client.Set(ctx, s.key(userID), code, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis error: %w", err)
	}

	return code, nil
}

func (s *RedisStore) Consume(ctx context.Context, userID string, code string) (bool, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(userID)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	return res == 1, nil
}
