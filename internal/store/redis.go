package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis adapts a go-redis client to the KV interface.  Every method maps
// onto a single Redis command so the atomicity guarantees of the
// interface hold without Lua scripting.
type Redis struct {
	client *redis.Client
	// db is the logical database number the client is connected to; it is
	// needed to build the keyspace-notification channel name.
	db int
}

// NewRedis wraps an existing client.  The db argument must match the DB
// field the client was configured with.
func NewRedis(client *redis.Client, db int) *Redis {
	return &Redis{client: client, db: db}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *Redis) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return r.client.IncrBy(ctx, key, n).Result()
}

func (r *Redis) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return r.client.DecrBy(ctx, key, n).Result()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis passes the protocol sentinels through undecoded: a raw -2
	// for a missing key and -1 for a key without expiration, not scaled
	// to seconds like a real TTL.
	switch d {
	case time.Duration(-2):
		return 0, ErrNotFound
	case time.Duration(-1):
		return NoExpiry, nil
	}
	return d, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *Redis) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// EnableExpiryEvents turns on expired-key notifications server side.
// Managed Redis deployments commonly forbid CONFIG commands; the error
// is returned so the caller can fall back to scanning instead.
func (r *Redis) EnableExpiryEvents(ctx context.Context) error {
	if err := r.client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		return fmt.Errorf("config set notify-keyspace-events: %w", err)
	}
	return nil
}

// SubscribeExpired subscribes to the expired-key event channel of the
// connected database and forwards expired key names until ctx is
// cancelled.  The returned channel is closed on shutdown.
func (r *Redis) SubscribeExpired(ctx context.Context) (<-chan string, error) {
	channel := fmt.Sprintf("__keyevent@%d__:expired", r.db)
	pubsub := r.client.Subscribe(ctx, channel)
	// Force the SUBSCRIBE round trip so a bad connection fails here
	// rather than silently inside the goroutine.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Printf("store: expired-key subscription closed")
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var _ KV = (*Redis)(nil)
var _ ExpiryNotifier = (*Redis)(nil)
