package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobGuard serializes background jobs across instances using Redis. A job
// acquires its slot with SETNX before running; the slot doubles as a
// cooldown, so a finished run blocks re-runs until the cooldown lapses.
type JobGuard struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewJobGuard connects to Redis and returns a guard
func NewJobGuard(cfg RedisConfig) (*JobGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &JobGuard{
		client:    client,
		keyPrefix: "job:guard:",
	}, nil
}

// NewJobGuardWithClient creates a guard on an existing Redis client
func NewJobGuardWithClient(client *redis.Client, keyPrefix string) *JobGuard {
	if keyPrefix == "" {
		keyPrefix = "job:guard:"
	}
	return &JobGuard{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// TryAcquire claims the job slot for ttl. It returns false when another
// instance holds the slot or the job is still in cooldown.
func (g *JobGuard) TryAcquire(ctx context.Context, jobName string, ttl time.Duration) (bool, error) {
	key := g.keyPrefix + jobName

	acquired, err := g.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire job guard: %w", err)
	}

	return acquired, nil
}

// Extend resets the slot's TTL to the cooldown after a successful run, so
// the next run waits out the cooldown rather than the in-flight TTL
func (g *JobGuard) Extend(ctx context.Context, jobName string, cooldown time.Duration) error {
	key := g.keyPrefix + jobName

	if err := g.client.Set(ctx, key, "1", cooldown).Err(); err != nil {
		return fmt.Errorf("failed to extend job guard: %w", err)
	}
	return nil
}

// Release frees the slot immediately, typically after a failed run so a
// retry does not wait out the cooldown
func (g *JobGuard) Release(ctx context.Context, jobName string) error {
	key := g.keyPrefix + jobName

	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release job guard: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (g *JobGuard) Close() error {
	return g.client.Close()
}
