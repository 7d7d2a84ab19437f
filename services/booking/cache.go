package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SnapshotCache holds serialized booking snapshots under a version guard:
// a write carrying an older version than the stored entry is discarded, so
// pollers across application instances never read a projection older than
// one already published.
type SnapshotCache interface {
	Get(ctx context.Context, bookingID string) ([]byte, error)
	SetIfNewer(ctx context.Context, bookingID string, version int64, payload []byte, ttl time.Duration) error
}

const snapshotKeyPrefix = "booking:snapshot:"

// setIfNewerScript compares the incoming version against the version field
// of the stored snapshot before overwriting. The check and the SET run as
// one script, so two instances writing the same key cannot interleave.
var setIfNewerScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur then
  local ok, snap = pcall(cjson.decode, cur)
  if ok and snap["version"] and tonumber(snap["version"]) >= tonumber(ARGV[1]) then
    return 0
  end
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisSnapshotCache implements SnapshotCache on a shared Redis client.
type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

func (c *RedisSnapshotCache) Get(ctx context.Context, bookingID string) ([]byte, error) {
	raw, err := c.client.Get(ctx, snapshotKeyPrefix+bookingID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot cache read failed: %w", err)
	}
	return raw, nil
}

func (c *RedisSnapshotCache) SetIfNewer(ctx context.Context, bookingID string, version int64, payload []byte, ttl time.Duration) error {
	err := setIfNewerScript.Run(ctx, c.client,
		[]string{snapshotKeyPrefix + bookingID},
		version, payload, ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("snapshot cache write failed: %w", err)
	}
	return nil
}
