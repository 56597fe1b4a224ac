// Package cache keeps computed auto-kpis reports in Redis so repeated board
// loads do not recompute them. A cache without a client is a no-op.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadboard_backend/internal/kpi"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "controlo:auto-kpis:"
	defaultTTL = 5 * time.Minute
)

// ReportCache stores project reports keyed by project id.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Open connects to redisURL. An empty URL returns a disabled cache.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*ReportCache, error) {
	if redisURL == "" {
		return New(nil, ttl), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse kpi cache redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping kpi cache redis: %w", err)
	}
	return New(client, ttl), nil
}

// New wraps an existing client. A nil client disables caching.
func New(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is configured.
func (c *ReportCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached report, if any.
func (c *ReportCache) Get(ctx context.Context, projectID string) (*kpi.ProjectReport, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, keyPrefix+projectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached report: %w", err)
	}
	var report kpi.ProjectReport
	if err := json.Unmarshal(raw, &report); err != nil {
		// A stale layout is treated as a miss.
		return nil, false, nil
	}
	return &report, true, nil
}

// Set stores a report for the configured TTL.
func (c *ReportCache) Set(ctx context.Context, report kpi.ProjectReport) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+report.ProjectID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

// Invalidate drops the cached report of a project.
func (c *ReportCache) Invalidate(ctx context.Context, projectID string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Del(ctx, keyPrefix+projectID).Err(); err != nil {
		return fmt.Errorf("invalidate report: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *ReportCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
