// Command ledgerd is the ledger service's single binary: it wires LDG, WAL,
// IDG, SAG, REC and OPS over Postgres/Redis/Mongo/RabbitMQ and serves the
// Operations API, delegating everything past env/logger setup to a Service
// type.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	"github.com/shoreline-pay/ledgercore/internal/platform/motel"
	"github.com/shoreline-pay/ledgercore/internal/platform/mzap"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := mlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := mzap.New(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	defer zapLogger.Sync() //nolint:errcheck

	var logger mlog.Logger = zapLogger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = mlog.ContextWithLogger(ctx, logger)

	tel := motel.New("ledgercore")
	defer tel.Shutdown(context.Background()) //nolint:errcheck

	svc, err := build(ctx, cfg, logger, tel)
	if err != nil {
		logger.Errorf("ledgerd: failed to initialize service: %v", err)
		os.Exit(1)
	}

	defer svc.Close() //nolint:errcheck

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("ledgerd: service exited: %v", err)
		os.Exit(1)
	}

	logger.Info("ledgerd: shutdown complete")
}
