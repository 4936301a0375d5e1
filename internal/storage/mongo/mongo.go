// Package mongo wires the metadata side index's connection.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
)

// Connection is a hub that deals with the mongo connection.
type Connection struct {
	ConnectionString string
	Database         string

	client    *mongo.Client
	Connected bool
}

// Connect opens the mongo client and verifies connectivity.
func (c *Connection) Connect(ctx context.Context, logger mlog.Logger) error {
	logger.Info("connecting to mongodb")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.ConnectionString))
	if err != nil {
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return err
	}

	c.client = client
	c.Connected = true

	logger.Info("connected to mongodb")

	return nil
}

// Database returns the metadata database handle, connecting lazily if needed.
func (c *Connection) DB(ctx context.Context, logger mlog.Logger) (*mongo.Database, error) {
	if c.client == nil {
		if err := c.Connect(ctx, logger); err != nil {
			return nil, err
		}
	}

	return c.client.Database(c.Database), nil
}
