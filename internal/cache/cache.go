package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// Cache stores per-segment analysis results in Redis so re-probing an
// unchanged segment skips the inspection call. Entries are keyed by the
// composite (segment index, segment URI) identity.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

func segmentKey(index int, uri string) string {
	return fmt.Sprintf("segment:%d:%s", index, uri)
}

// SetSegmentAnalysis caches one probed segment's raw data and analysis
func (c *Cache) SetSegmentAnalysis(ctx context.Context, index int, uri string, entry *models.SegmentCacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	return c.client.Set(ctx, segmentKey(index, uri), data, ttl).Err()
}

// GetSegmentAnalysis retrieves one probed segment from cache. A miss returns
// (nil, nil).
func (c *Cache) GetSegmentAnalysis(ctx context.Context, index int, uri string) (*models.SegmentCacheEntry, error) {
	data, err := c.client.Get(ctx, segmentKey(index, uri)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get segment from cache: %w", err)
	}

	var entry models.SegmentCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

// DeleteSegmentAnalysis removes one segment entry from cache
func (c *Cache) DeleteSegmentAnalysis(ctx context.Context, index int, uri string) error {
	return c.client.Del(ctx, segmentKey(index, uri)).Err()
}

// InvalidateSegments removes every cached segment entry. Callers invoke this
// when a manifest changes, since segment indices shift with the playlist.
func (c *Cache) InvalidateSegments(ctx context.Context) error {
	return c.deletePattern(ctx, "segment:*")
}

// SetCorruptionReport caches a whole-file corruption report by video ID
func (c *Cache) SetCorruptionReport(ctx context.Context, videoID string, report *models.CorruptionReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal corruption report: %w", err)
	}

	key := fmt.Sprintf("corruption:%s", videoID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetCorruptionReport retrieves a cached corruption report. A miss returns
// (nil, nil).
func (c *Cache) GetCorruptionReport(ctx context.Context, videoID string) (*models.CorruptionReport, error) {
	key := fmt.Sprintf("corruption:%s", videoID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get corruption report from cache: %w", err)
	}

	var report models.CorruptionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal corruption report: %w", err)
	}

	return &report, nil
}

// deletePattern deletes all keys matching a pattern
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Ping checks cache connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
