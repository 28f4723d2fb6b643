package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/ramtinsoft/ibsguard/internal/adapter/postgres"
	"github.com/ramtinsoft/ibsguard/internal/adapter/runtime"
	"github.com/ramtinsoft/ibsguard/internal/config"
	"github.com/ramtinsoft/ibsguard/internal/state"
	"github.com/ramtinsoft/ibsguard/internal/usecase"
)

// Setup provisions the IBSng container and seeds the agent state file.
type Setup struct {
	rt     *runtime.Docker
	db     *postgres.Admin
	config *config.Config
	logger usecase.Logger

	sleep func(time.Duration)
}

func New(rt *runtime.Docker, cfg *config.Config, logger usecase.Logger) *Setup {
	return &Setup{
		rt:     rt,
		db:     postgres.NewAdmin(rt, cfg.Container.Name, cfg.Database),
		config: cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Options carries the interactive inputs the installer collects.
type Options struct {
	BotToken string
	ChatID   string
}

// Run pulls the image, creates and starts the container, waits for the
// database to accept connections, and writes the initial state file. A
// container that already runs is left alone.
func (s *Setup) Run(ctx context.Context, opts Options) error {
	running, err := s.rt.IsRunning(ctx, s.config.Container.Name)
	if err != nil {
		return fmt.Errorf("failed to check container: %w", err)
	}

	if running {
		s.logger.Infof("Container %s already running, skipping provisioning", s.config.Container.Name)
	} else {
		if err := s.provision(ctx); err != nil {
			return err
		}
	}

	if err := s.waitForDatabase(ctx); err != nil {
		return err
	}

	if err := s.seedState(opts); err != nil {
		return err
	}

	s.logger.Infof("Setup complete")
	return nil
}

func (s *Setup) provision(ctx context.Context) error {
	s.logger.Infof("Pulling image %s", s.config.Setup.Image)
	if err := s.rt.PullImage(ctx, s.config.Setup.Image); err != nil {
		return err
	}

	spec := runtime.ContainerSpec{
		Name:  s.config.Container.Name,
		Image: s.config.Setup.Image,
		Ports: s.config.Setup.Ports,
	}
	if s.config.Setup.DataVolume != "" {
		spec.Binds = []string{s.config.Setup.DataVolume + ":/var/lib/pgsql"}
	}

	s.logger.Infof("Creating container %s", spec.Name)
	id, err := s.rt.CreateContainer(ctx, spec)
	if err != nil {
		return err
	}

	s.logger.Infof("Starting container %s", spec.Name)
	return s.rt.StartContainer(ctx, id)
}

// waitForDatabase polls pg_isready until the server answers or the retry
// budget runs out.
func (s *Setup) waitForDatabase(ctx context.Context) error {
	retries := s.config.Setup.ReadyRetries
	interval := time.Duration(s.config.Setup.ReadyIntervalSeconds) * time.Second

	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.db.Ready(ctx); err == nil {
			s.logger.Infof("Database is accepting connections")
			return nil
		} else {
			s.logger.Infof("Waiting for database (%d/%d): %v", attempt, retries, err)
		}

		s.sleep(interval)
	}

	return fmt.Errorf("database did not become ready after %d attempts", retries)
}

// seedState writes the initial agent state. Existing credentials are kept
// unless new ones were supplied.
func (s *Setup) seedState(opts Options) error {
	store := state.NewStore(s.config.Agent.StateFile)
	err := store.Update(func(st *state.State) {
		if opts.BotToken != "" {
			st.BotToken = opts.BotToken
		}
		if opts.ChatID != "" {
			st.ChatID = opts.ChatID
		}
		if st.MinIntervalHours == 0 {
			st.MinIntervalHours = s.config.Agent.MinIntervalHours
		}
	})
	if err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	s.logger.Infof("State file written to %s", s.config.Agent.StateFile)
	return nil
}
