// Command rolevizsync runs a single reconciliation pass and exits. It is
// the manual counterpart of the scheduled worker, intended for operators
// replaying a run after a failure or testing against a new vault.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roleviz/roleviz/internal/app"
	"github.com/roleviz/roleviz/internal/directory"
	"github.com/roleviz/roleviz/internal/platform/db"
	"github.com/roleviz/roleviz/internal/sync"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping sync startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var store sync.Store
	if !cfg.DryRun {
		pool, err := db.New(ctx, cfg.DSN())
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		repo := sync.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("ensure schema", slog.Any("error", err))
			os.Exit(1)
		}
		store = repo
	}

	dir, err := directory.Dial(cfg.LDAPAddr(), cfg.LDAPBindDN, cfg.LDAPPassword)
	if err != nil {
		logger.Error("connect directory", slog.Any("error", err))
		os.Exit(1)
	}
	defer dir.Close()

	svc := sync.NewService(store, logger, sync.Options{
		DryRun:       cfg.DryRun,
		PurgeAgeDays: cfg.PurgeAgeDays,
		DumpDir:      cfg.DebugDumpDir,
	})
	if _, err := svc.Run(ctx, dir); err != nil {
		logger.Error("reconciliation run", slog.Any("error", err))
		os.Exit(1)
	}
}
