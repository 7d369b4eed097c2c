package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ideaforge/internal/logging"
)

// Redis backs the cache with a shared Redis instance so workflow results
// survive process restarts and are shared across replicas. Every failure
// is logged and reported as a miss; Redis being down never fails a Run.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis cache from a URL such as
// redis://localhost:6379/0.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// NewRedisFromClient wraps an existing client (used by tests).
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warn(logging.CategoryCache, "redis get %s: %v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) put(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		logging.Warn(logging.CategoryCache, "redis set %s: %v", key, err)
	}
}

func (r *Redis) GetWorkflow(ctx context.Context, topic, workflowContext, optionsKey string) ([]byte, bool) {
	return r.get(ctx, WorkflowKey(topic, workflowContext, optionsKey))
}

func (r *Redis) PutWorkflow(ctx context.Context, topic, workflowContext, optionsKey string, payload []byte, ttl time.Duration) {
	r.put(ctx, WorkflowKey(topic, workflowContext, optionsKey), payload, ttl)
}

func (r *Redis) GetAgent(ctx context.Context, agent, promptKey string) (string, bool) {
	b, ok := r.get(ctx, AgentKey(agent, promptKey))
	return string(b), ok
}

func (r *Redis) PutAgent(ctx context.Context, agent, promptKey, text string, ttl time.Duration) {
	r.put(ctx, AgentKey(agent, promptKey), []byte(text), ttl)
}

// Invalidate deletes keys matching a Redis glob pattern, iterating with
// SCAN to avoid blocking the server.
func (r *Redis) Invalidate(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Clear removes every ideaforge-owned key, leaving other tenants alone.
func (r *Redis) Clear(ctx context.Context) error {
	return r.Invalidate(ctx, keyPrefix+":*")
}
