package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mervekesknn/db-protection-insight/internal/snapshot"
)

// ErrCacheMiss indicates the requested import is not cached.
var ErrCacheMiss = errors.New("cache: import not found")

const cacheKeyPrefix = "alarmscope:import:"

// CacheConfig holds Redis snapshot cache settings.
type CacheConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Cache stores serialized snapshots in Redis keyed by import id, so
// past imports stay retrievable after the in-memory snapshot is
// replaced.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// StoreSnapshot caches a snapshot under its import id and as the
// latest import.
func (c *Cache) StoreSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, cacheKeyPrefix+snap.ImportID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to store snapshot: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+"latest", data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to store latest pointer: %w", err)
	}
	return nil
}

// GetImport retrieves a cached snapshot by import id. The id "latest"
// resolves to the most recent import.
func (c *Cache) GetImport(ctx context.Context, importID string) (*snapshot.Snapshot, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+importID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache: failed to get import: %w", err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("cache: failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
