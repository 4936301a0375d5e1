// Package redis wires the low-latency key-value store (STG's heartbeat
// side) used by the saga store and the idempotency guard.
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
)

// Connection is a hub that deals with the redis connection.
type Connection struct {
	ConnectionString string
	Client           *goredis.Client
	Connected        bool
}

// Connect opens the redis client and verifies connectivity.
func (c *Connection) Connect(ctx context.Context, logger mlog.Logger) error {
	logger.Info("connecting to redis")

	opts, err := goredis.ParseURL(c.ConnectionString)
	if err != nil {
		return err
	}

	client := goredis.NewClient(opts)

	if _, err := client.Ping(ctx).Result(); err != nil {
		return err
	}

	c.Client = client
	c.Connected = true

	logger.Info("connected to redis")

	return nil
}

// DB returns the redis client, connecting lazily if needed.
func (c *Connection) DB(ctx context.Context, logger mlog.Logger) (*goredis.Client, error) {
	if c.Client == nil {
		if err := c.Connect(ctx, logger); err != nil {
			return nil, err
		}
	}

	return c.Client, nil
}
