package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trainhub/internal/model"
)

// ModuleCache keeps fetched module resources so revisits skip the LMS
type ModuleCache interface {
	SetModule(ctx context.Context, module *model.Module) error
	GetModule(ctx context.Context, moduleID int) (*model.Module, error)
}

type moduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewModuleCache creates a new module cache
func NewModuleCache(client *redis.Client, ttl time.Duration) ModuleCache {
	return &moduleCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *moduleCache) key(moduleID int) string {
	return fmt.Sprintf("module:%d", moduleID)
}

func (c *moduleCache) SetModule(ctx context.Context, module *model.Module) error {
	data, err := json.Marshal(module)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(module.ID), data, c.ttl).Err()
}

// GetModule returns nil, nil on a miss
func (c *moduleCache) GetModule(ctx context.Context, moduleID int) (*model.Module, error) {
	data, err := c.client.Get(ctx, c.key(moduleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var module model.Module
	if err := json.Unmarshal([]byte(data), &module); err != nil {
		return nil, err
	}
	return &module, nil
}
