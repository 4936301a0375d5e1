package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/shoreline-pay/ledgercore/internal/events"
	"github.com/shoreline-pay/ledgercore/internal/idempotency"
	"github.com/shoreline-pay/ledgercore/internal/ledger"
	"github.com/shoreline-pay/ledgercore/internal/metadata"
	"github.com/shoreline-pay/ledgercore/internal/ops"
	"github.com/shoreline-pay/ledgercore/internal/opsapi"
	"github.com/shoreline-pay/ledgercore/internal/permission"
	"github.com/shoreline-pay/ledgercore/internal/platform/authn"
	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
	"github.com/shoreline-pay/ledgercore/internal/recovery"
	"github.com/shoreline-pay/ledgercore/internal/saga"
	mongostore "github.com/shoreline-pay/ledgercore/internal/storage/mongo"
	pgstore "github.com/shoreline-pay/ledgercore/internal/storage/postgres"
	redisstore "github.com/shoreline-pay/ledgercore/internal/storage/redis"
	"github.com/shoreline-pay/ledgercore/internal/wallet"
)

// Service composes every runnable of ledgerd: the Operations API's fiber
// server, the wallet-projection RabbitMQ consumer, and REC's recovery loop.
// Built on errgroup rather than an external launcher package, since no such
// dependency is part of this module.
type Service struct {
	cfg    *Config
	logger mlog.Logger
	tel    *motel.Telemetry

	app      *fiber.App
	consumer *events.Consumer
	walletUC *wallet.UseCase
	recovery *recovery.Service

	amqpConn *amqp.Connection
}

// build wires every collaborator described in SPEC_FULL.md's module layout:
// Postgres-backed LDG/WAL/OPS repositories, the Redis-backed saga store and
// idempotency guard, the Mongo-backed metadata index, the RabbitMQ
// publisher/consumer pair, and the fiber HTTP surface in front of all of it.
func build(ctx context.Context, cfg *Config, logger mlog.Logger, tel *motel.Telemetry) (*Service, error) {
	pg := &pgstore.Connection{
		PrimaryDSN:     cfg.PostgresPrimaryDSN,
		ReplicaDSN:     cfg.PostgresReplicaDSN,
		PrimaryDBName:  cfg.PostgresDBName,
		MigrationsPath: cfg.MigrationsPath,
	}
	if err := pg.Connect(ctx, logger); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db, err := pg.DB(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres db: %w", err)
	}

	rds := &redisstore.Connection{ConnectionString: cfg.RedisURL}
	if err := rds.Connect(ctx, logger); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	mongoConn := &mongostore.Connection{ConnectionString: cfg.MongoURL, Database: cfg.MongoDatabase}
	if err := mongoConn.Connect(ctx, logger); err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	publisherCh, err := events.Connect(amqpConn, cfg.RabbitMQExchange)
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}

	publisher := events.NewRabbitMQPublisher(publisherCh, cfg.RabbitMQExchange, logger)

	metadataUC := metadata.NewUseCase(metadata.NewMongoRepository(mongoConn))

	ledgerUC := ledger.NewUseCase(ledger.NewPostgresRepository(db), publisher)
	ledgerUC.WithMetadataIndexer(metadataUC)

	walletUC := wallet.NewUseCase(wallet.NewPostgresRepository(db), ledgerUC)

	sagaCoordinator := &saga.Coordinator{
		Store:  saga.NewRedisStore(rds.Client),
		Logger: logger,
		H:      cfg.heartbeatInterval(),
		TStuck: cfg.stuckThreshold(),
	}

	var oracle permission.Oracle
	if cfg.PermissionOracleURL == "" {
		oracle = permission.StubOracle{}
	} else {
		oracle = permission.NewHTTPOracle(cfg.PermissionOracleURL)
	}

	feeRate, err := cfg.defaultFeeRate()
	if err != nil {
		return nil, fmt.Errorf("parse DEFAULT_FEE_PERCENT: %w", err)
	}

	opsUC := ops.NewUseCase(
		ledgerUC,
		walletUC,
		ops.NewPostgresRepository(db),
		idempotency.NewGuard(rds.Client),
		sagaCoordinator,
		oracle,
		ops.NewFeePolicy(feeRate, nil),
		publisher,
	)

	consumerCh, err := events.Connect(amqpConn, cfg.RabbitMQExchange)
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}

	consumer, err := events.NewConsumer(consumerCh, cfg.RabbitMQExchange, cfg.WalletQueueName,
		[]string{"ledger.*.completed"}, logger)
	if err != nil {
		return nil, fmt.Errorf("build wallet consumer: %w", err)
	}

	recoverySvc := &recovery.Service{
		Store:         sagaCoordinator.Store,
		Registry:      recovery.Registry(opsUC.RecoveryDefinitions()),
		Logger:        logger,
		TStuck:        cfg.stuckThreshold(),
		ScanInterval:  cfg.recoveryScanInterval(),
		MaxConcurrent: int(cfg.RecoveryMaxConcurrent),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	opsapi.Mount(app, opsapi.NewHandler(opsUC, walletUC), authn.NewVerifier(cfg.JWTSecret))

	return &Service{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		app:      app,
		consumer: consumer,
		walletUC: walletUC,
		recovery: recoverySvc,
		amqpConn: amqpConn,
	}, nil
}

// Run starts every runnable and blocks until ctx is cancelled or one of
// them returns a fatal error: the HTTP server alongside its non-HTTP
// runnables.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Infof("opsapi: listening on %s", s.cfg.HTTPAddr)
		return s.app.Listen(s.cfg.HTTPAddr)
	})

	g.Go(func() error {
		return s.consumer.Run(gctx, s.walletUC.HandleLedgerEvent)
	})

	g.Go(func() error {
		return s.recovery.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.app.ShutdownWithContext(context.Background())
	})

	return g.Wait()
}

// Close releases the RabbitMQ connection; Postgres/Redis/Mongo connections
// are process-lifetime resources the OS reclaims on exit.
func (s *Service) Close() error {
	return s.amqpConn.Close()
}
