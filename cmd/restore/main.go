// cmd/restore/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ramtinsoft/ibsguard/internal/adapter/postgres"
	"github.com/ramtinsoft/ibsguard/internal/adapter/runtime"
	"github.com/ramtinsoft/ibsguard/internal/cli"
	"github.com/ramtinsoft/ibsguard/internal/config"
	"github.com/ramtinsoft/ibsguard/internal/domain"
	"github.com/ramtinsoft/ibsguard/internal/infrastructure/logger"
	"github.com/ramtinsoft/ibsguard/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		os.Exit(reportFailure(err))
	}
}

// reportFailure prints the failure and maps it to the process exit code.
// A declined confirmation aborts with exit code 1 like every other failure;
// callers scripting the restore must be able to tell "did not run" from
// "ran".
func reportFailure(err error) int {
	if errors.Is(err, usecase.ErrConfirmationDeclined) {
		cli.Warnf("Restore cancelled.")
		return 1
	}
	cli.Fatalf("%v", err)
	return 1
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	if flag.NArg() != 1 {
		return fmt.Errorf("usage: %s [flags] <backup-file>", os.Args[0])
	}
	archivePath := flag.Arg(0)

	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("backup file: %w", err)
	}

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

	var confirmer domain.Confirmer = cli.SurveyConfirmer{}
	if *yes {
		confirmer = domain.AutoConfirm{}
	}

	restoreUC := usecase.NewRestore(
		rt,
		db,
		confirmer,
		log,
		cfg.Container.Name,
		cfg.Restore.TempDir,
		time.Duration(cfg.Restore.ServiceWaitSeconds)*time.Second,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := restoreUC.Execute(ctx, archivePath)
	if err != nil {
		return err
	}

	cli.Successf("Restore completed (%s format).", report.Format)
	for i, passErr := range report.PassErrors {
		if passErr != nil {
			cli.Warnf("SQL pass %d reported errors: %v", i+1, passErr)
		}
	}

	if report.ServiceRunning {
		cli.Successf("Service is up.")
	} else {
		cli.Warnf("Service did not come back after restart; check the container logs.")
	}
	// Parsed by calling scripts; the exit code only reflects whether the
	// restore itself completed.
	cli.Machinef("SERVICE_RUNNING", strconv.FormatBool(report.ServiceRunning))
	return nil
}
