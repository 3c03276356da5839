package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis client
type Client struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(host, port, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// BatchLock is a best-effort lease keeping parallel service instances from
// running the same billing sweep. It is advisory only; invoice uniqueness is
// enforced by the database constraint, not by this lock.
type BatchLock struct {
	client *redis.Client
}

func NewBatchLock(c *Client) *BatchLock {
	return &BatchLock{client: c.GetClient()}
}

// TryLock acquires the lease when no other instance holds it. Returns false
// without error when the lease is already taken.
func (l *BatchLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire batch lock %s: %w", key, err)
	}
	return acquired, nil
}

// Unlock releases the lease early, used after a failed sweep so another
// instance (or the next manual run) can pick the window up again.
func (l *BatchLock) Unlock(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release batch lock %s: %w", key, err)
	}
	return nil
}
