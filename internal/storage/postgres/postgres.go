// Package postgres wires the primary/replica-resolved connection used by
// every repository in the ledger, and runs its migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
)

// Connection is a hub that deals with primary/replica postgres connections
// and runs migrations against the primary on startup.
type Connection struct {
	PrimaryDSN     string
	ReplicaDSN     string
	PrimaryDBName  string
	MigrationsPath string

	db        *dbresolver.DB
	Connected bool
}

// Connect opens the primary and replica pools, runs pending migrations
// against the primary, and verifies connectivity.
func (c *Connection) Connect(ctx context.Context, logger mlog.Logger) error {
	logger.Info("connecting to primary and replica postgres databases")

	primary, err := sql.Open("pgx", c.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("open primary: %w", err)
	}

	replica, err := sql.Open("pgx", c.ReplicaDSN)
	if err != nil {
		return fmt.Errorf("open replica: %w", err)
	}

	resolved := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if err := c.migrate(primary); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := resolved.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	c.db = &resolved
	c.Connected = true

	logger.Info("connected to postgres")

	return nil
}

func (c *Connection) migrate(primary *sql.DB) error {
	path, err := filepath.Abs(c.MigrationsPath)
	if err != nil {
		return err
	}

	sourceURL, err := url.Parse(filepath.ToSlash(path))
	if err != nil {
		return err
	}

	sourceURL.Scheme = "file"

	driver, err := postgres.WithInstance(primary, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.PrimaryDBName,
		SchemaName:            "public",
	})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), c.PrimaryDBName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// DB returns the resolved connection, connecting lazily if needed.
func (c *Connection) DB(ctx context.Context, logger mlog.Logger) (dbresolver.DB, error) {
	if c.db == nil {
		if err := c.Connect(ctx, logger); err != nil {
			return nil, err
		}
	}

	return *c.db, nil
}
