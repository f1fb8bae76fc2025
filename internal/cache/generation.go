package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// generationTTL bounds how long a generation counter outlives its last bump.
const generationTTL = time.Hour

var errStaleFill = errors.New("cache: generation changed")

func generationKey(key string) string {
	return key + ":gen"
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter, key string) (int64, error) {
	gen, err := cmd.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Generation returns the invalidation counter of key. ok is false when the
// cache is disabled or unreachable, and callers then skip filling.
func (c *Client) Generation(ctx context.Context, key string) (gen int64, ok bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	gen, err := readGeneration(ctx, c.client, key)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// Invalidate bumps the generation of key and then removes it. A fill that
// read its source before the bump can no longer store its value.
func (c *Client) Invalidate(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Expire(ctx, generationKey(key), generationTTL)
		return nil
	})
	_ = c.Delete(ctx, key)
}

// FillJSON stores v under key only while the generation of key still equals
// gen. It reports whether the value was stored.
func (c *Client) FillJSON(ctx context.Context, key string, gen int64, v any, ttl time.Duration) bool {
	if c == nil || c.client == nil {
		return false
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return false
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, generationKey(key))
	return err == nil
}
