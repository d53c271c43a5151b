package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tenantConfigTTL = 5 * time.Minute

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	return &Client{redis.NewClient(opt)}
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// CacheTenantConfig stores a tenant config snapshot for the public config
// endpoint. Invalidated on admin hot-swap.
func (c *Client) CacheTenantConfig(ctx context.Context, tenantID string, cfg interface{}) error {
	return c.SetJSON(ctx, tenantConfigKey(tenantID), cfg, tenantConfigTTL)
}

func (c *Client) GetCachedTenantConfig(ctx context.Context, tenantID string, dest interface{}) error {
	return c.GetJSON(ctx, tenantConfigKey(tenantID), dest)
}

func (c *Client) InvalidateTenantConfig(ctx context.Context, tenantID string) error {
	return c.Del(ctx, tenantConfigKey(tenantID)).Err()
}

func tenantConfigKey(tenantID string) string {
	return fmt.Sprintf("tenant:config:%s", tenantID)
}
