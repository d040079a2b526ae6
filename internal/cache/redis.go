// Package cache provides a Redis-backed caching layer.
//
// Key strategy:
//   - Dashboard stats:  leadgen:stats:v1         → TTL 30 s
//   - Canonical schema: leadgen:schema:v1        → TTL 5 min
//
// Both keys are invalidated whenever an import runs or the schema changes.
// The cache is optional; callers hold a nil *Client when Redis is down.
package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kexy2025/leadgen/internal/domain"
)

const (
	StatsTTL  = 30 * time.Second
	SchemaTTL = 5 * time.Minute

	statsKey  = "leadgen:stats:v1"
	schemaKey = "leadgen:schema:v1"
)

// Client wraps redis.Client with domain-aware helpers.
type Client struct {
	rdb *redis.Client
}

// New creates a new cache Client.
// addr example: "localhost:6379"
func New(addr, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{rdb: rdb}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }

// ─── Stats cache ──────────────────────────────────────────────────────────────

// GetStats returns cached dashboard stats or nil on miss.
func (c *Client) GetStats(ctx context.Context) (*domain.Stats, error) {
	val, err := c.rdb.Get(ctx, statsKey).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}
	var s domain.Stats
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetStats stores dashboard stats with StatsTTL.
func (c *Client) SetStats(ctx context.Context, s *domain.Stats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey, b, StatsTTL).Err()
}

// ─── Schema cache ─────────────────────────────────────────────────────────────

// GetSchema returns the cached schema columns or nil on miss.
func (c *Client) GetSchema(ctx context.Context) ([]domain.SchemaColumn, error) {
	val, err := c.rdb.Get(ctx, schemaKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cols []domain.SchemaColumn
	if err := json.Unmarshal(val, &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// SetSchema stores the schema columns with SchemaTTL.
func (c *Client) SetSchema(ctx context.Context, cols []domain.SchemaColumn) error {
	b, err := json.Marshal(cols)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, schemaKey, b, SchemaTTL).Err()
}

// ─── Invalidation ─────────────────────────────────────────────────────────────

// InvalidateStats drops the stats key after an import.
func (c *Client) InvalidateStats(ctx context.Context) error {
	return c.rdb.Del(ctx, statsKey).Err()
}

// InvalidateSchema drops the schema key after a mapping change.
func (c *Client) InvalidateSchema(ctx context.Context) error {
	return c.rdb.Del(ctx, schemaKey).Err()
}
