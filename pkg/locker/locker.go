package locker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/fx"

	"licensing-controlplane/pkg/config"

	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired within the
// configured wait deadline. Callers must treat it as retryable and must not
// confuse it with a quota rejection.
var ErrLockTimeout = errors.New("locker: timed out waiting for lock")

// Manager provides per-key mutual exclusion across processes. The lock
// carries a TTL so a crashed holder cannot deadlock the key forever.
type Manager interface {
	// WithLock runs fn while holding the lock for key. It waits up to the
	// configured wait deadline and returns ErrLockTimeout if the lock could
	// not be acquired in time. fn's error is returned as-is.
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

var Module = fx.Module("locker", fx.Provide(NewRedis))

const retryInterval = 50 * time.Millisecond

type Params struct {
	fx.In
	Redis  *redis.Client
	Config *config.Config
}

// Redis implements Manager on top of SET NX PX plus a compare-and-delete
// script, so a holder whose TTL already fired never releases someone
// else's lock.
type Redis struct {
	client *redis.Client
	wait   time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedis(p Params) Manager {
	return &Redis{
		client: p.Redis,
		wait:   p.Config.Quota.LockWait,
	}
}

func (r *Redis) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	token := newToken()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	defer func() {
		// Best effort: if the TTL already released the lock the script is a no-op.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err()
	}()

	return fn()
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
