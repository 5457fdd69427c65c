package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared between instances.  Keys are namespaced with
// prefix so Clear and Keys never touch foreign data; expiry is delegated to
// Redis TTLs.
type Redis struct {
	rdb    *redis.Client
	prefix string
	max    int
}

// NewRedis wraps a connected client.  max is reported by status only,
// Redis eviction policy is the server's business.
func NewRedis(rdb *redis.Client, prefix string, max int) *Redis {
	return &Redis{rdb: rdb, prefix: prefix + ":", max: max}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string, dst any) error {
	bs, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	return json.Unmarshal(bs, dst)
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, r.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Keys implements Store.
func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	var out []string
	err := r.scan(ctx, func(batch []string) error {
		for _, k := range batch {
			out = append(out, strings.TrimPrefix(k, r.prefix))
		}
		return nil
	})
	return out, err
}

// Clear implements Store.
func (r *Redis) Clear(ctx context.Context) error {
	return r.scan(ctx, func(batch []string) error {
		if len(batch) == 0 {
			return nil
		}
		return r.rdb.Del(ctx, batch...).Err()
	})
}

// Max implements Store.
func (r *Redis) Max() int { return r.max }

func (r *Redis) scan(ctx context.Context, fn func([]string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if err := fn(keys); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
