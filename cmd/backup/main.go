// cmd/backup/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ramtinsoft/ibsguard/internal/adapter/compressor"
	"github.com/ramtinsoft/ibsguard/internal/adapter/postgres"
	"github.com/ramtinsoft/ibsguard/internal/adapter/runtime"
	"github.com/ramtinsoft/ibsguard/internal/adapter/storage"
	"github.com/ramtinsoft/ibsguard/internal/app"
	"github.com/ramtinsoft/ibsguard/internal/cli"
	"github.com/ramtinsoft/ibsguard/internal/config"
	"github.com/ramtinsoft/ibsguard/internal/infrastructure/logger"
	"github.com/ramtinsoft/ibsguard/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		cli.Fatalf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Close()

	rt, err := runtime.NewDocker(cfg.Container.StopTimeoutSeconds)
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer rt.Close()

	db := postgres.NewAdmin(rt, cfg.Container.Name, cfg.Database)

	localStorage, err := storage.NewLocal(cfg.Backup.Dir)
	if err != nil {
		return fmt.Errorf("initialize backup directory: %w", err)
	}

	uploadTargets := app.BuildUploadTargets(cfg, log)

	backupUC := usecase.NewBackup(
		rt,
		db,
		localStorage,
		uploadTargets,
		compressor.NewGzip(),
		log,
		cfg.Container.Name,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backup, err := backupUC.Execute(ctx)
	if err != nil {
		return err
	}

	cleanupUC := usecase.NewCleanup(localStorage, uploadTargets, log, cfg.Backup.RetentionDays)
	if err := cleanupUC.Execute(ctx); err != nil {
		cli.Warnf("Retention cleanup failed: %v", err)
	}

	cli.Successf("Backup completed: %s", backup.Filename)
	// Parsed by calling scripts.
	cli.Machinef("BACKUP_FILE_PATH", backup.FilePath)
	return nil
}
