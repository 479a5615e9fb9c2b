package bia

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/veridianhq/veridian/internal/models"
)

const (
	// Redis key prefix for cached compliance levels
	complianceLevelKeyPrefix = "bia:level:"

	// complianceLevelTTL bounds staleness if an invalidation is ever lost.
	complianceLevelTTL = 10 * time.Minute
)

// LevelCache caches derived compliance levels per organization. A nil
// *LevelCache is valid and disables caching.
type LevelCache struct {
	client *redis.Client
}

// NewLevelCache constructs a Redis-backed level cache. Returns nil when
// the client is nil so callers can wire it unconditionally.
func NewLevelCache(client *redis.Client) *LevelCache {
	if client == nil {
		return nil
	}
	return &LevelCache{client: client}
}

// Get returns the cached level for an organization, or (nil, nil) on a
// miss. Cache errors are returned so the caller can fall through to a
// fresh computation.
func (c *LevelCache) Get(ctx context.Context, orgID uuid.UUID) (*models.ComplianceLevel, error) {
	if c == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, complianceLevelKeyPrefix+orgID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var level models.ComplianceLevel
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

// Set stores the level for an organization.
func (c *LevelCache) Set(ctx context.Context, orgID uuid.UUID, level *models.ComplianceLevel) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(level)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, complianceLevelKeyPrefix+orgID.String(), data, complianceLevelTTL).Err()
}

// Invalidate drops the cached level for an organization. Called after
// every BIA mutation.
func (c *LevelCache) Invalidate(ctx context.Context, orgID uuid.UUID) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, complianceLevelKeyPrefix+orgID.String()).Err()
}
