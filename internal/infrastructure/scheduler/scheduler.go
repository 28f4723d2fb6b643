package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

// ErrorFunc receives failures from scheduled jobs together with the job name.
type ErrorFunc func(name string, err error)

// Scheduler runs named jobs on cron schedules with seconds precision.
type Scheduler struct {
	cron  *cron.Cron
	onErr ErrorFunc

	// ctx is the run context handed to every job; set once in Start,
	// before any job fires.
	ctx context.Context
}

func New(onErr ErrorFunc) *Scheduler {
	if onErr == nil {
		onErr = func(string, error) {}
	}
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		onErr: onErr,
	}
}

// AddJob registers job under the given six-field cron spec. Jobs receive the
// context passed to Start, so cancelling it interrupts in-flight jobs. Job
// errors are reported through the error callback, never propagated to cron.
func (s *Scheduler) AddJob(name, spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := job(ctx); err != nil {
			s.onErr(name, err)
		}
	})
	return err
}

func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
