package quota

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements CounterStore on a shared redis instance. Sorted sets
// hold execution records (member = "jobID:millis", score = millis); plain
// integer keys hold application counts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var decrFloorScript = redis.NewScript(`
local v = tonumber(redis.call("GET", KEYS[1]) or "0")
if v <= 0 then
	return 0
end
return redis.call("DECR", KEYS[1])
`)

func (s *RedisStore) AddToWindow(ctx context.Context, key, member string, score int64, ttl time.Duration) error {
	if err := s.client.ZAdd(ctx, key, redis.Z{Member: member, Score: float64(score)}).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) CountWindow(ctx context.Context, key string, min, max int64) (int64, error) {
	return s.client.ZCount(ctx, key, formatScore(min), formatScore(max)).Result()
}

func (s *RedisStore) TrimWindow(ctx context.Context, key string, cutoff int64) (int64, error) {
	// Exclusive upper bound: entries scored exactly at cutoff still count.
	return s.client.ZRemRangeByScore(ctx, key, "-inf", "("+formatScore(cutoff)).Result()
}

func (s *RedisStore) RangeWindow(ctx context.Context, key string, min, max int64) ([]Entry, error) {
	zs, err := s.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, Entry{Member: member, Score: int64(z.Score)})
	}
	return entries, nil
}

func (s *RedisStore) GetCount(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) DecrementFloor(ctx context.Context, key string) (int64, error) {
	return decrFloorScript.Run(ctx, s.client, []string{key}).Int64()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func formatScore(v int64) string {
	return strconv.FormatInt(v, 10)
}
