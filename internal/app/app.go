package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ramtinsoft/ibsguard/internal/adapter/compressor"
	"github.com/ramtinsoft/ibsguard/internal/adapter/postgres"
	"github.com/ramtinsoft/ibsguard/internal/adapter/runtime"
	"github.com/ramtinsoft/ibsguard/internal/adapter/storage"
	"github.com/ramtinsoft/ibsguard/internal/bot"
	"github.com/ramtinsoft/ibsguard/internal/config"
	"github.com/ramtinsoft/ibsguard/internal/domain"
	"github.com/ramtinsoft/ibsguard/internal/infrastructure/logger"
	"github.com/ramtinsoft/ibsguard/internal/infrastructure/scheduler"
	"github.com/ramtinsoft/ibsguard/internal/state"
	"github.com/ramtinsoft/ibsguard/internal/usecase"
)

// App is the long-running agent: scheduled backups, retention cleanup and
// the optional Telegram control bot, sharing one set of adapters.
type App struct {
	config    *config.Config
	logger    *logger.Logger
	scheduler *scheduler.Scheduler
	store     *state.Store
	backupUC  *usecase.Backup
	cleanupUC *usecase.Cleanup
	bot       *bot.Bot
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s agent", cfg.App.Name)

	rt, err := runtime.NewDocker(cfg.Container.StopTimeoutSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}

	db := postgres.NewAdmin(rt, cfg.Container.Name, cfg.Database)

	localStorage, err := storage.NewLocal(cfg.Backup.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	comp := compressor.NewGzip()
	uploadTargets := BuildUploadTargets(cfg, log)

	backupUC := usecase.NewBackup(
		rt,
		db,
		localStorage,
		uploadTargets,
		comp,
		log,
		cfg.Container.Name,
	)

	cleanupUC := usecase.NewCleanup(
		localStorage,
		uploadTargets,
		log,
		cfg.Backup.RetentionDays,
	)

	// The bot has already asked its own confirmation question before it
	// hands a file over, so its restore pipeline never prompts again.
	restoreUC := usecase.NewRestore(
		rt,
		db,
		domain.AutoConfirm{},
		log,
		cfg.Container.Name,
		cfg.Restore.TempDir,
		time.Duration(cfg.Restore.ServiceWaitSeconds)*time.Second,
	)

	store := state.NewStore(cfg.Agent.StateFile)
	notifier := findNotifier(uploadTargets)

	onJobError := func(name string, err error) {
		log.Errorf("scheduled job %s failed: %v", name, err)
		if notifier == nil {
			return
		}
		if nerr := notifier.Notify(fmt.Sprintf("⚠️ %s job failed: %v", name, err)); nerr != nil {
			log.Errorf("failed to notify operator: %v", nerr)
		}
	}

	app := &App{
		config:    cfg,
		logger:    log,
		scheduler: scheduler.New(onJobError),
		store:     store,
		backupUC:  backupUC,
		cleanupUC: cleanupUC,
	}

	app.bot, err = initializeBot(cfg, store, backupUC, restoreUC, log)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// BuildUploadTargets instantiates a storage adapter for every enabled
// upload target. A target that fails to initialize is logged and skipped,
// never fatal.
func BuildUploadTargets(cfg *config.Config, log *logger.Logger) []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	for _, targetCfg := range cfg.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "gdrive":
			stor, err = storage.NewGDrive(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Google Drive: %v", err)
				continue
			}
			log.Infof("✓ Google Drive upload enabled")

		case "s3":
			stor, err = storage.NewS3(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize S3: %v", err)
				continue
			}
			log.Infof("✓ AWS S3 upload enabled (bucket: %s)", targetCfg.Bucket)

		case "telegram":
			stor, err = storage.NewTelegram(&targetCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram: %v", err)
				continue
			}
			log.Infof("✓ Telegram upload enabled")

		default:
			log.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}

		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets
}

// findNotifier picks the first upload target that can push operator
// messages. Only the Telegram adapter can.
func findNotifier(targets []usecase.UploadTarget) domain.Notifier {
	for _, target := range targets {
		if n, ok := target.Storage.(domain.Notifier); ok {
			return n
		}
	}
	return nil
}

// initializeBot builds the Telegram bot when the state file carries
// credentials. An agent without credentials still runs scheduled backups.
func initializeBot(
	cfg *config.Config,
	store *state.Store,
	backupUC *usecase.Backup,
	restoreUC *usecase.Restore,
	log *logger.Logger,
) (*bot.Bot, error) {
	s, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if s.BotToken == "" || s.ChatID == "" {
		log.Warnf("No Telegram credentials in %s, bot disabled", cfg.Agent.StateFile)
		return nil, nil
	}

	chatID, err := strconv.ParseInt(s.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat_id %q in state file: %w", s.ChatID, err)
	}

	b, err := bot.New(
		s.BotToken,
		chatID,
		store,
		backupUC,
		restoreUC,
		cfg.Agent.DownloadDir,
		cfg.Agent.MinIntervalHours,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	log.Infof("✓ Telegram bot enabled (chat %d)", chatID)
	return b, nil
}

func (a *App) Run(ctx context.Context) error {
	if err := a.scheduler.AddJob("backup", a.config.Agent.BackupSchedule, a.scheduledBackup); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}
	a.logger.Infof("Scheduled backup: %s", a.config.Agent.BackupSchedule)

	if err := a.scheduler.AddJob("cleanup", a.config.Agent.CleanupSchedule, a.cleanupUC.Execute); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	a.logger.Infof("Scheduled cleanup: %s", a.config.Agent.CleanupSchedule)

	a.scheduler.Start(ctx)
	a.logger.Infof("Scheduler started")

	if a.bot != nil {
		go func() {
			if err := a.bot.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Errorf("telegram bot stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()
	return nil
}

// scheduledBackup runs one backup if the minimum interval since the last
// one has elapsed. Manual backups through the bot bypass this throttle.
func (a *App) scheduledBackup(ctx context.Context) error {
	due, wait, err := a.store.CheckInterval(time.Now(), a.config.Agent.MinIntervalHours)
	if err != nil {
		return fmt.Errorf("failed to check backup interval: %w", err)
	}
	if !due {
		a.logger.Infof("Skipping scheduled backup, next one due in %s", wait.Round(time.Minute))
		return nil
	}

	backup, err := a.backupUC.Execute(ctx)
	if err != nil {
		return err
	}

	if err := a.store.Update(func(s *state.State) {
		s.LastBackupUnix = backup.CreatedAt.Unix()
	}); err != nil {
		a.logger.Errorf("failed to record backup time: %v", err)
	}
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down agent...")
	a.scheduler.Stop()
	a.logger.Close()
}
