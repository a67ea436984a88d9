package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/telemetry"
)

// DefaultRoleTTL bounds how long a cached role may lag an update made
// through another process.
const DefaultRoleTTL = 5 * time.Minute

const roleKeyPrefix = "role:"

// RoleSource loads roles from the system of record.
type RoleSource interface {
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
}

// RoleCache is a read-through Redis cache of roles. Redis failures degrade to
// reading the source directly; they never fail a lookup on their own.
type RoleCache struct {
	client *redis.Client
	source RoleSource
	ttl    time.Duration
}

// NewRoleCache creates a cache over source. A non-positive ttl uses DefaultRoleTTL.
func NewRoleCache(client *redis.Client, source RoleSource, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = DefaultRoleTTL
	}
	return &RoleCache{client: client, source: source, ttl: ttl}
}

func roleKey(name string) string {
	return roleKeyPrefix + name
}

// FindRoleByName returns the named role from Redis, or loads and caches it
// from the source. Missing roles are not cached.
func (c *RoleCache) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	key := roleKey(name)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var role models.Role
		if jerr := json.Unmarshal(data, &role); jerr == nil {
			telemetry.RoleCacheLookupsTotal.WithLabelValues("hit").Inc()
			return &role, nil
		}
		c.client.Del(ctx, key)
		telemetry.RoleCacheLookupsTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		telemetry.RoleCacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		telemetry.RoleCacheLookupsTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "role cache read failed", "role", name, "error", err)
	}

	role, err := c.source.FindRoleByName(ctx, name)
	if err != nil || role == nil {
		return role, err
	}

	if data, err := json.Marshal(role); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "role cache write failed", "role", name, "error", err)
		}
	}
	return role, nil
}

// Invalidate drops the cached copy of the named role.
func (c *RoleCache) Invalidate(ctx context.Context, name string) error {
	return c.client.Del(ctx, roleKey(name)).Err()
}
